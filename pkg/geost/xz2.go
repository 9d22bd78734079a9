package geost

import "math"

// XZ2MaxLevel is the finest quadtree resolution used for extent indexing.
const XZ2MaxLevel = 12

// XZ2 indexes non-point extents. An extent is anchored at the quadtree cell
// of its lower-left corner, on the finest level whose enlarged cell (doubled
// in each dimension) still covers the whole extent; the level number occupies
// the bits above the cell's Morton prefix so coarser levels form their own
// key sections. The index is deliberately coarse: every range it produces may
// contain false positives and carries Contains=false.
//
// Instances are stateless after construction and safe for concurrent use.
type XZ2 struct {
	X Dimension
	Y Dimension
}

// NewXZ2 returns the standard longitude/latitude extent curve.
func NewXZ2() XZ2 {
	return XZ2{
		X: NewDimension(-180, 180, XZ2MaxLevel),
		Y: NewDimension(-90, 90, XZ2MaxLevel),
	}
}

// Encode returns the index of the finest enlarged cell covering the box.
func (xz XZ2) Encode(box Box) uint64 {
	minX := clampf(box.MinX, xz.X.Min, xz.X.Max)
	minY := clampf(box.MinY, xz.Y.Min, xz.Y.Max)
	maxX := clampf(box.MaxX, xz.X.Min, xz.X.Max)
	maxY := clampf(box.MaxY, xz.Y.Min, xz.Y.Max)

	for level := uint(XZ2MaxLevel); ; level-- {
		cx := cellAt(xz.X, minX, level)
		cy := cellAt(xz.Y, minY, level)
		if level == 0 || xz.fits(maxX, maxY, cx, cy, level) {
			return xz.encodeCell(level, cx, cy)
		}
	}
}

// Decode returns the resolution level and the enlarged cell bounds of an
// index.
func (xz XZ2) Decode(idx uint64) (level uint, cell Box) {
	level = uint(idx >> (2 * XZ2MaxLevel))
	if level > XZ2MaxLevel {
		level = XZ2MaxLevel
	}
	z := idx >> (2 * (XZ2MaxLevel - level))
	if level > 0 {
		z &= uint64(1)<<(2*level) - 1
	} else {
		z = 0
	}
	cx := combine2(z)
	cy := combine2(z >> 1)
	w := (xz.X.Max - xz.X.Min) / float64(uint64(1)<<level)
	h := (xz.Y.Max - xz.Y.Min) / float64(uint64(1)<<level)
	cell = Box{
		MinX: xz.X.Min + float64(cx)*w,
		MinY: xz.Y.Min + float64(cy)*h,
		MaxX: math.Min(xz.X.Max, xz.X.Min+float64(cx)*w+2*w),
		MaxY: math.Min(xz.Y.Max, xz.Y.Min+float64(cy)*h+2*h),
	}
	return level, cell
}

// Ranges covers every anchor cell whose enlarged extent can intersect the
// query box, per resolution level, subject to the range budget (zero means
// DefaultMaxRanges). An inverted box yields nil.
func (xz XZ2) Ranges(box Box, maxRanges int) []IndexRange {
	if box.MinX > box.MaxX || box.MinY > box.MaxY {
		return nil
	}
	if maxRanges <= 0 {
		maxRanges = DefaultMaxRanges
	}
	perLevel := maxRanges / (XZ2MaxLevel + 1)
	if perLevel < 4 {
		perLevel = 4
	}

	var out []IndexRange
	for level := uint(0); level <= XZ2MaxLevel; level++ {
		// anchors up to two cells below or left of the query can still reach
		// it through their enlarged extents
		loX := cellAt(xz.X, box.MinX, level)
		if loX > 2 {
			loX -= 2
		} else {
			loX = 0
		}
		loY := cellAt(xz.Y, box.MinY, level)
		if loY > 2 {
			loY -= 2
		} else {
			loY = 0
		}
		windows := [][2]uint64{
			{loX, cellAt(xz.X, box.MaxX, level)},
			{loY, cellAt(xz.Y, box.MaxY, level)},
		}
		suffix := uint64(1)<<(2*(XZ2MaxLevel-level)) - 1
		for _, r := range decompose(windows, level, perLevel) {
			out = append(out, IndexRange{
				Lower:    uint64(level)<<(2*XZ2MaxLevel) | r.Lower<<(2*(XZ2MaxLevel-level)),
				Upper:    uint64(level)<<(2*XZ2MaxLevel) | r.Upper<<(2*(XZ2MaxLevel-level)) | suffix,
				Contains: false,
			})
		}
	}
	return mergeIndexRanges(out)
}

func (xz XZ2) encodeCell(level uint, cx, cy uint64) uint64 {
	z := split2(cx) | split2(cy)<<1
	return uint64(level)<<(2*XZ2MaxLevel) | z<<(2*(XZ2MaxLevel-level))
}

// fits reports whether the enlarged cell anchored at (cx, cy) covers the
// box's upper corner. The lower corner is inside the anchor cell by
// construction.
func (xz XZ2) fits(maxX, maxY float64, cx, cy uint64, level uint) bool {
	w := (xz.X.Max - xz.X.Min) / float64(uint64(1)<<level)
	h := (xz.Y.Max - xz.Y.Min) / float64(uint64(1)<<level)
	return maxX <= xz.X.Min+float64(cx)*w+2*w && maxY <= xz.Y.Min+float64(cy)*h+2*h
}

// cellAt returns the level-resolution cell a coordinate falls in, floor
// semantics, clamped to the domain.
func cellAt(d Dimension, v float64, level uint) uint64 {
	cells := uint64(1) << level
	frac := (v - d.Min) / (d.Max - d.Min)
	if frac <= 0 {
		return 0
	}
	if frac >= 1 {
		return cells - 1
	}
	c := uint64(frac * float64(cells))
	if c >= cells {
		c = cells - 1
	}
	return c
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
