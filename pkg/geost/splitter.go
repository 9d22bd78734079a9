package geost

import "fmt"

// StrategyKind names a query execution strategy.
type StrategyKind int

const (
	// StrategyZ3 scans period-chunked space-time curve ranges.
	StrategyZ3 StrategyKind = iota
	// StrategyZ2 scans spatial curve ranges (Z2 for points, XZ2 for extents).
	StrategyZ2
	// StrategyAttribute scans one indexed attribute's value range.
	StrategyAttribute
	// StrategyID looks up an explicit id set.
	StrategyID
	// StrategyFullScan scans the whole data table.
	StrategyFullScan
)

func (k StrategyKind) String() string {
	switch k {
	case StrategyZ3:
		return "z3"
	case StrategyZ2:
		return "z2"
	case StrategyAttribute:
		return "attribute"
	case StrategyID:
		return "id"
	case StrategyFullScan:
		return "full-scan"
	}
	return fmt.Sprintf("strategy(%d)", int(k))
}

// QueryFilter is one candidate execution of an AND clause. The primary
// predicates drive range computation; the secondary, if set, must still be
// evaluated against scan results because range coverage is not exact.
type QueryFilter struct {
	Strategy  StrategyKind
	Attribute string // indexed attribute name, StrategyAttribute only
	Primary   []Predicate
	Secondary Predicate
}

// Filter returns the full predicate the filter stands for: the conjunction
// of its primary and secondary parts.
func (qf QueryFilter) Filter() Predicate {
	parts := make([]Predicate, 0, len(qf.Primary)+1)
	parts = append(parts, qf.Primary...)
	if qf.Secondary != nil {
		parts = append(parts, qf.Secondary)
	}
	return NewAnd(parts...)
}

// FilterPlan is one OR-branch combination: alternative sub-scans whose union
// satisfies the original predicate.
type FilterPlan struct {
	Filters []QueryFilter
}

// Splitter decomposes predicate trees into candidate filter plans for one
// schema. Stateless and safe for concurrent use.
type Splitter struct {
	schema *Schema
}

func NewSplitter(schema *Schema) *Splitter {
	return &Splitter{schema: schema}
}

// Split rewrites the predicate to DNF, enumerates per-clause strategy
// candidates and combines them across OR branches. Unsatisfiable clauses
// contribute nothing; a fully unsatisfiable predicate yields no plans and no
// error.
func (s *Splitter) Split(p Predicate) ([]FilterPlan, error) {
	clauses := DNFClauses(p)

	var options [][]QueryFilter
	for _, clause := range clauses {
		opts, err := s.andOptions(clause)
		if err != nil {
			return nil, err
		}
		if len(opts) == 0 {
			continue // unsatisfiable branch, dropped from every plan
		}
		options = append(options, opts)
	}
	if len(options) == 0 {
		return nil, nil
	}

	// cartesian product: one candidate per OR branch
	plans := [][]QueryFilter{nil}
	for _, opts := range options {
		next := make([][]QueryFilter, 0, len(plans)*len(opts))
		for _, plan := range plans {
			for _, opt := range opts {
				combined := make([]QueryFilter, 0, len(plan)+1)
				combined = append(append(combined, plan...), opt)
				next = append(next, combined)
			}
		}
		plans = next
	}

	out := make([]FilterPlan, 0, len(plans))
	for _, filters := range plans {
		filters = combineSecondary(filters)
		filters = mergeOverlapped(filters)
		out = append(out, FilterPlan{Filters: filters})
	}
	return out, nil
}

// clauseParts is one AND clause partitioned by predicate kind.
type clauseParts struct {
	spatial   []Predicate
	temporal  []Predicate
	attrs     map[string][]Predicate
	attrNames []string
	idSet     *IDIn
	residual  []Predicate
}

// others returns the clause leaves outside a candidate's primary, preserving
// partition order so equal clauses build equal secondaries.
func (c *clauseParts) others(spatial, temporal bool, attr string, ids bool) []Predicate {
	var out []Predicate
	if !spatial {
		out = append(out, c.spatial...)
	}
	if !temporal {
		out = append(out, c.temporal...)
	}
	for _, name := range c.attrNames {
		if name == attr {
			continue
		}
		out = append(out, c.attrs[name]...)
	}
	if c.idSet != nil && !ids {
		out = append(out, *c.idSet)
	}
	out = append(out, c.residual...)
	return out
}

// andOptions enumerates the strategy candidates for one AND clause. A nil
// result with nil error means the clause is unsatisfiable.
func (s *Splitter) andOptions(clause []Predicate) ([]QueryFilter, error) {
	parts := clauseParts{attrs: map[string][]Predicate{}}
	var idLeaves []IDIn

	for _, leaf := range clause {
		switch v := leaf.(type) {
		case None:
			return nil, nil
		case All:
			// tautology, narrows nothing
		case BBox:
			if v.coversWorld() {
				// whole-universe filter: dropping it keeps it from blocking
				// narrower strategies
				continue
			}
			parts.spatial = append(parts.spatial, v)
		case During:
			// only point schemas have a period-prefixed data table; extent
			// rows live under the spatial-only curve, so their intervals
			// stay residual
			if v.bounded() && s.schema.HasTime && s.schema.Points {
				parts.temporal = append(parts.temporal, v)
			} else {
				parts.residual = append(parts.residual, v)
			}
		case Equals:
			s.classifyAttr(&parts, v.Name, v)
		case Range:
			s.classifyAttr(&parts, v.Name, v)
		case IDIn:
			idLeaves = append(idLeaves, v)
		case Not:
			parts.residual = append(parts.residual, v)
		case And, Or:
			return nil, fmt.Errorf("%w: nested %T inside an AND clause", ErrUnsupportedPredicate, leaf)
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnsupportedPredicate, leaf)
		}
	}

	if len(idLeaves) > 0 {
		set := intersectIDs(idLeaves)
		if len(set.IDs) == 0 {
			return nil, nil // provably empty id intersection
		}
		parts.idSet = &set
	}

	var out []QueryFilter

	if parts.idSet != nil {
		out = append(out, QueryFilter{
			Strategy:  StrategyID,
			Primary:   []Predicate{*parts.idSet},
			Secondary: conj(parts.others(false, false, "", true)),
		})
	}

	switch {
	case len(parts.temporal) > 0:
		primary := make([]Predicate, 0, len(parts.spatial)+len(parts.temporal))
		primary = append(primary, parts.spatial...)
		primary = append(primary, parts.temporal...)
		out = append(out, QueryFilter{
			Strategy:  StrategyZ3,
			Primary:   primary,
			Secondary: conj(parts.others(true, true, "", false)),
		})
	case len(parts.spatial) > 0:
		out = append(out, QueryFilter{
			Strategy:  StrategyZ2,
			Primary:   parts.spatial,
			Secondary: conj(parts.others(true, false, "", false)),
		})
	}

	for _, name := range parts.attrNames {
		out = append(out, QueryFilter{
			Strategy:  StrategyAttribute,
			Attribute: name,
			Primary:   parts.attrs[name],
			Secondary: conj(parts.others(false, false, name, false)),
		})
	}

	if len(out) == 0 {
		secondary := conj(parts.others(false, false, "", false))
		if secondary == nil {
			secondary = All{}
		}
		out = append(out, QueryFilter{
			Strategy:  StrategyFullScan,
			Primary:   []Predicate{All{}},
			Secondary: secondary,
		})
	}
	return out, nil
}

func (s *Splitter) classifyAttr(parts *clauseParts, name string, leaf Predicate) {
	attr, ok := s.schema.Attribute(name)
	if !ok || !attr.Indexed {
		parts.residual = append(parts.residual, leaf)
		return
	}
	if _, seen := parts.attrs[name]; !seen {
		parts.attrNames = append(parts.attrNames, name)
	}
	parts.attrs[name] = append(parts.attrs[name], leaf)
}

// intersectIDs intersects sorted id sets.
func intersectIDs(sets []IDIn) IDIn {
	out := sets[0].IDs
	for _, s := range sets[1:] {
		out = intersectSorted(out, s.IDs)
	}
	return IDIn{IDs: out}
}

func intersectSorted(a, b []string) []string {
	var out []string
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// combineSecondary merges filters sharing a strategy and primary by OR-ing
// their secondaries, so one primary range set is never scanned twice with
// different residuals.
func combineSecondary(filters []QueryFilter) []QueryFilter {
	type groupKey struct {
		strategy  StrategyKind
		attribute string
		primary   string
	}
	var order []groupKey
	grouped := map[groupKey][]QueryFilter{}
	for _, qf := range filters {
		k := groupKey{qf.Strategy, qf.Attribute, predicateKey(qf.Primary)}
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], qf)
	}

	out := make([]QueryFilter, 0, len(order))
	for _, k := range order {
		group := grouped[k]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		merged := group[0]
		secondaries := make([]Predicate, 0, len(group))
		exact := false
		for _, qf := range group {
			if qf.Secondary == nil {
				// one branch needs no residual: the shared primary already
				// admits every row the others would
				exact = true
				break
			}
			secondaries = append(secondaries, qf.Secondary)
		}
		if exact {
			merged.Secondary = nil
		} else {
			merged.Secondary = NewOr(secondaries...)
		}
		out = append(out, merged)
	}
	return out
}

// mergeOverlapped folds narrower filters into a co-planned full scan: the
// full scan already covers their ranges, so they survive only as OR-ed
// residuals instead of duplicate scans.
func mergeOverlapped(filters []QueryFilter) []QueryFilter {
	full := -1
	for i, qf := range filters {
		if qf.Strategy == StrategyFullScan {
			full = i
			break
		}
	}
	if full < 0 || len(filters) == 1 {
		return filters
	}

	fs := filters[full]
	secondaries := make([]Predicate, 0, len(filters))
	if fs.Secondary != nil {
		secondaries = append(secondaries, fs.Secondary)
	}
	for i, qf := range filters {
		if i == full {
			continue
		}
		secondaries = append(secondaries, qf.Filter())
	}
	fs.Secondary = NewOr(secondaries...)
	return []QueryFilter{fs}
}
