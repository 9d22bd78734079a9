package geost

import (
	"math"
	"sort"
)

// IndexRange is one contiguous inclusive range in curve-index space.
// Contains=false marks a range that may hold false positives, which must be
// filtered against the original query downstream.
type IndexRange struct {
	Lower    uint64
	Upper    uint64
	Contains bool
}

// DefaultMaxRanges bounds how many ranges a single curve decomposition emits.
// The budget is the safety valve against recursive blow-up on adversarial
// query shapes; a cell that cannot be subdivided within budget is emitted as
// one over-covering range instead.
const DefaultMaxRanges = 200

// zcell is one pending cell of the curve's implicit quad/oct tree: an index
// prefix and the subdivision level it sits at. The low (bits-level)*dims bits
// of the prefix are always zero.
type zcell struct {
	prefix uint64
	level  uint
}

// decompose covers the query windows (one inclusive normalized bound pair per
// dimension) with contiguous curve-index ranges. It walks the implicit tree
// with an explicit work stack: cells fully outside the windows are dropped,
// cells fully inside emit one Contains=true range, partial cells subdivide
// until single-index resolution or until the range budget is exhausted, at
// which point the cell is emitted as a single Contains=false range.
//
// Output is sorted with overlapping and adjacent ranges merged. Identical
// inputs produce identical output.
func decompose(windows [][2]uint64, bits uint, maxRanges int) []IndexRange {
	dims := uint(len(windows))
	for _, w := range windows {
		if w[0] > w[1] {
			return nil
		}
	}
	if maxRanges <= 0 {
		maxRanges = DefaultMaxRanges
	}

	var out []IndexRange
	stack := []zcell{{prefix: 0, level: 0}}

	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		dimBits := bits - c.level
		shift := dimBits * dims

		inside := true
		outside := false
		for d := uint(0); d < dims && !outside; d++ {
			lo := deinterleave(c.prefix, d, dims)
			hi := lo + (uint64(1)<<dimBits - 1)
			switch {
			case hi < windows[d][0] || lo > windows[d][1]:
				outside = true
			case lo < windows[d][0] || hi > windows[d][1]:
				inside = false
			}
		}

		switch {
		case outside:
		case inside:
			out = append(out, IndexRange{
				Lower:    c.prefix,
				Upper:    c.prefix | (uint64(1)<<shift - 1),
				Contains: true,
			})
		case len(out)+len(stack)+(1<<dims) > maxRanges:
			// budget exhausted: over-cover instead of subdividing
			out = append(out, IndexRange{
				Lower:    c.prefix,
				Upper:    c.prefix | (uint64(1)<<shift - 1),
				Contains: false,
			})
		default:
			// push children high-to-low so they pop in ascending order
			for i := 1<<dims - 1; i >= 0; i-- {
				stack = append(stack, zcell{
					prefix: c.prefix | uint64(i)<<(shift-dims),
					level:  c.level + 1,
				})
			}
		}
	}

	return mergeIndexRanges(out)
}

// deinterleave extracts dimension d from an interleaved index.
func deinterleave(z uint64, d, dims uint) uint64 {
	if dims == 2 {
		return combine2(z >> d)
	}
	return combine3(z >> d)
}

// mergeIndexRanges sorts ranges and collapses overlapping or adjacent ones.
// A merged range is Contains only if every constituent was.
func mergeIndexRanges(ranges []IndexRange) []IndexRange {
	if len(ranges) == 0 {
		return nil
	}
	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].Lower != ranges[j].Lower {
			return ranges[i].Lower < ranges[j].Lower
		}
		return ranges[i].Upper < ranges[j].Upper
	})
	merged := make([]IndexRange, 0, len(ranges))
	for _, r := range ranges {
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if r.Lower <= last.Upper || (last.Upper != math.MaxUint64 && r.Lower == last.Upper+1) {
				if r.Upper > last.Upper {
					last.Upper = r.Upper
				}
				last.Contains = last.Contains && r.Contains
				continue
			}
		}
		merged = append(merged, r)
	}
	return merged
}
