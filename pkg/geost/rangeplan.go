package geost

import "fmt"

// ByteRange is one backend scan range: Start inclusive, End exclusive. A nil
// End means unbounded. Contains=false marks a range that may contain false
// positives; the executor must keep the residual filter on for its rows.
type ByteRange struct {
	Start    []byte
	End      []byte
	Contains bool
}

// ScanPlan is the executable form of one QueryFilter: concrete byte ranges,
// the residual filter to apply to scanned rows, whether the same logical
// record can surface more than once, and a parallelism hint for the executor.
type ScanPlan struct {
	Ranges            []ByteRange
	Residual          Predicate
	MayHaveDuplicates bool
	SuggestedThreads  int
}

// BuildScanPlan converts a chosen QueryFilter into backend byte ranges plus
// the residual filter the scan executor must still apply.
func (p *Planner) BuildScanPlan(qf QueryFilter) (ScanPlan, error) {
	switch qf.Strategy {
	case StrategyZ3:
		return p.buildZ3(qf)
	case StrategyZ2:
		if p.schema.Points {
			return p.buildZ2(qf)
		}
		return p.buildXZ2(qf)
	case StrategyAttribute:
		return p.buildAttribute(qf)
	case StrategyID:
		return p.buildID(qf)
	case StrategyFullScan:
		return p.buildFullScan(qf)
	}
	return ScanPlan{}, fmt.Errorf("%w: strategy %s", ErrUnsupportedPredicate, qf.Strategy)
}

func (p *Planner) buildZ3(qf QueryFilter) (ScanPlan, error) {
	box, interval := primaryBounds(qf.Primary)
	if interval.Start.After(interval.End) {
		// disjoint interval leaves intersect to nothing: scan nothing,
		// same as an inverted box
		return ScanPlan{Residual: p.curveResidual(qf), SuggestedThreads: 1}, nil
	}
	periods, err := SplitInterval(interval.Start, interval.End)
	if err != nil {
		return ScanPlan{}, err
	}

	budget := p.maxRanges / len(periods)
	if budget < 1 {
		budget = 1
	}

	var ranges []ByteRange
	for _, per := range periods {
		for _, r := range p.z3.Ranges(box, per.Start, per.End, budget) {
			lower := make([]byte, Z3HeaderSize)
			EncodeZ3Key(lower, per.ID, r.Lower, "")
			upper := make([]byte, Z3HeaderSize)
			EncodeZ3Key(upper, per.ID, r.Upper, "")
			ranges = append(ranges, ByteRange{
				Start:    lower,
				End:      KeySuccessor(upper),
				Contains: r.Contains,
			})
		}
	}

	return ScanPlan{
		Ranges:            ranges,
		Residual:          p.curveResidual(qf),
		MayHaveDuplicates: len(periods) > 1,
		SuggestedThreads:  suggestThreads(len(ranges)),
	}, nil
}

func (p *Planner) buildZ2(qf QueryFilter) (ScanPlan, error) {
	box, _ := primaryBounds(qf.Primary)
	var ranges []ByteRange
	for _, r := range p.z2.Ranges(box, p.maxRanges) {
		ranges = append(ranges, curveByteRange(PrefixZ2, r))
	}
	return ScanPlan{
		Ranges:           ranges,
		Residual:         p.curveResidual(qf),
		SuggestedThreads: suggestThreads(len(ranges)),
	}, nil
}

func (p *Planner) buildXZ2(qf QueryFilter) (ScanPlan, error) {
	box, _ := primaryBounds(qf.Primary)
	var ranges []ByteRange
	for _, r := range p.xz2.Ranges(box, p.maxRanges) {
		ranges = append(ranges, curveByteRange(PrefixXZ2, r))
	}
	return ScanPlan{
		Ranges:            ranges,
		Residual:          p.curveResidual(qf),
		MayHaveDuplicates: true,
		SuggestedThreads:  suggestThreads(len(ranges)),
	}, nil
}

func (p *Planner) buildAttribute(qf QueryFilter) (ScanPlan, error) {
	var (
		lo, hi         string
		loSet, hiSet   bool
		loInc, hiInc   = true, true
		residualExtras []Predicate
	)

	tightenLo := func(val string, inc bool) {
		switch {
		case !loSet || val > lo:
			lo, loInc, loSet = val, inc, true
		case val == lo:
			loInc = loInc && inc
		}
	}
	tightenHi := func(val string, inc bool) {
		switch {
		case !hiSet || val < hi:
			hi, hiInc, hiSet = val, inc, true
		case val == hi:
			hiInc = hiInc && inc
		}
	}

	for _, leaf := range qf.Primary {
		switch v := leaf.(type) {
		case Equals:
			tightenLo(v.Value, true)
			tightenHi(v.Value, true)
		case Range:
			if v.Lo != "" {
				tightenLo(v.Lo, v.IncLo)
			}
			if v.Hi != "" {
				tightenHi(v.Hi, v.IncHi)
			}
			if (v.Lo != "" && !v.IncLo) || (v.Hi != "" && !v.IncHi) {
				// the byte range still includes the boundary value; the
				// residual re-applies the exclusive bound
				residualExtras = append(residualExtras, v)
			}
		default:
			return ScanPlan{}, fmt.Errorf("%w: %T in attribute primary", ErrUnsupportedPredicate, leaf)
		}
	}

	residualParts := residualExtras
	if qf.Secondary != nil {
		residualParts = append(residualParts, qf.Secondary)
	}

	if loSet && hiSet && (lo > hi || (lo == hi && !(loInc && hiInc))) {
		// provably empty bounds: no ranges, nothing to scan
		return ScanPlan{Residual: conj(residualParts), SuggestedThreads: 1}, nil
	}

	base := AttrKeyPrefix(qf.Attribute)
	start := base
	if loSet {
		start = append(append([]byte(nil), base...), lo...)
		start = append(start, 0)
	}
	var end []byte
	if hiSet {
		bound := append(append([]byte(nil), base...), hi...)
		bound = append(bound, 0)
		end = KeySuccessor(bound)
	} else {
		end = KeySuccessor(base)
	}

	return ScanPlan{
		Ranges:           []ByteRange{{Start: start, End: end, Contains: true}},
		Residual:         conj(residualParts),
		SuggestedThreads: 1,
	}, nil
}

func (p *Planner) buildID(qf QueryFilter) (ScanPlan, error) {
	var sets []IDIn
	for _, leaf := range qf.Primary {
		v, ok := leaf.(IDIn)
		if !ok {
			return ScanPlan{}, fmt.Errorf("%w: %T in id primary", ErrUnsupportedPredicate, leaf)
		}
		sets = append(sets, v)
	}
	if len(sets) == 0 {
		return ScanPlan{}, fmt.Errorf("%w: id filter without id set", ErrUnsupportedPredicate)
	}
	ids := intersectIDs(sets)

	ranges := make([]ByteRange, 0, len(ids.IDs))
	for _, id := range ids.IDs {
		start := EncodeIDKey(id)
		end := append(append([]byte(nil), start...), 0)
		ranges = append(ranges, ByteRange{Start: start, End: end, Contains: true})
	}

	return ScanPlan{
		Ranges:           ranges,
		Residual:         qf.Secondary,
		SuggestedThreads: suggestThreads(len(ranges)),
	}, nil
}

func (p *Planner) buildFullScan(qf QueryFilter) (ScanPlan, error) {
	start := []byte{p.dataPrefix()}
	return ScanPlan{
		Ranges:           []ByteRange{{Start: start, End: KeySuccessor(start), Contains: true}},
		Residual:         qf.Secondary,
		SuggestedThreads: 1,
	}, nil
}

// dataPrefix is the table holding the schema's primary data rows.
func (p *Planner) dataPrefix() byte {
	switch {
	case p.schema.Points && p.schema.HasTime:
		return PrefixZ3
	case p.schema.Points:
		return PrefixZ2
	default:
		return PrefixXZ2
	}
}

// curveResidual chooses the filter re-applied to curve scan results. Curve
// ranges over-cover, so the curve primaries stay in the residual unless the
// schema opts into loose bounding boxes; extent schemas are always
// re-filtered because the XZ2 index is coarse.
func (p *Planner) curveResidual(qf QueryFilter) Predicate {
	if p.schema.LooseBBox && p.schema.Points {
		return qf.Secondary
	}
	parts := make([]Predicate, 0, len(qf.Primary)+1)
	parts = append(parts, qf.Primary...)
	if qf.Secondary != nil {
		parts = append(parts, qf.Secondary)
	}
	return conj(parts)
}

func curveByteRange(prefix byte, r IndexRange) ByteRange {
	lower := make([]byte, Z2HeaderSize)
	EncodeCurveKey(lower, prefix, r.Lower, "")
	upper := make([]byte, Z2HeaderSize)
	EncodeCurveKey(upper, prefix, r.Upper, "")
	return ByteRange{Start: lower, End: KeySuccessor(upper), Contains: r.Contains}
}

// primaryBounds intersects a curve primary's spatial and temporal leaves
// into one box and one interval.
func primaryBounds(primary []Predicate) (Box, During) {
	box := WholeWorld()
	var interval During
	for _, leaf := range primary {
		switch v := leaf.(type) {
		case BBox:
			box = box.Intersection(v.Box)
		case During:
			if !v.Start.IsZero() && (interval.Start.IsZero() || v.Start.After(interval.Start)) {
				interval.Start = v.Start
			}
			if !v.End.IsZero() && (interval.End.IsZero() || v.End.Before(interval.End)) {
				interval.End = v.End
			}
		}
	}
	return box, interval
}

// suggestThreads sizes executor parallelism off the range count.
func suggestThreads(ranges int) int {
	if ranges <= 1 {
		return 1
	}
	t := (ranges + 7) / 8
	if t > 16 {
		return 16
	}
	return t
}
