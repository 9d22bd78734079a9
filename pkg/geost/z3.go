package geost

// Z3Bits is the bit width of each Z3 dimension; the combined index uses 63
// bits of a uint64.
const Z3Bits = 21

// Z3 is a three-dimensional Z-order curve over longitude, latitude and
// seconds within one time period. Bounding the time dimension to a single
// period keeps curve precision independent of how wide the queried interval
// is; see SplitInterval.
//
// Instances are stateless after construction and safe for concurrent use.
type Z3 struct {
	X Dimension
	Y Dimension
	T Dimension
}

// NewZ3 returns the standard longitude/latitude/period-seconds Z3 curve.
func NewZ3() Z3 {
	return Z3{
		X: NewDimension(-180, 180, Z3Bits),
		Y: NewDimension(-90, 90, Z3Bits),
		T: NewDimension(0, float64(PeriodSeconds), Z3Bits),
	}
}

// Encode interleaves the normalized coordinates and period offset into a
// single sortable index. t is in seconds within the period.
func (z Z3) Encode(x, y float64, t int64) uint64 {
	return split3(z.X.Normalize(x)) |
		split3(z.Y.Normalize(y))<<1 |
		split3(z.T.Normalize(float64(t)))<<2
}

// Decode returns the bin boundary coordinates and period offset of an index.
func (z Z3) Decode(idx uint64) (x, y float64, t int64) {
	x = z.X.Denormalize(combine3(idx))
	y = z.Y.Denormalize(combine3(idx >> 1))
	t = int64(z.T.Denormalize(combine3(idx >> 2)))
	return x, y, t
}

// Ranges covers the box and period-offset interval [t0, t1] with contiguous
// index ranges, subject to the range budget (zero means DefaultMaxRanges).
// An inverted box or interval yields nil.
func (z Z3) Ranges(box Box, t0, t1 int64, maxRanges int) []IndexRange {
	if box.MinX > box.MaxX || box.MinY > box.MaxY || t0 > t1 {
		return nil
	}
	windows := [][2]uint64{
		{z.X.Normalize(box.MinX), z.X.Normalize(box.MaxX)},
		{z.Y.Normalize(box.MinY), z.Y.Normalize(box.MaxY)},
		{z.T.Normalize(float64(t0)), z.T.Normalize(float64(t1))},
	}
	return decompose(windows, Z3Bits, maxRanges)
}

// split3 spreads the low 21 bits of v so two more dimensions can interleave.
func split3(v uint64) uint64 {
	v &= 0x1fffff
	v = (v | v<<32) & 0x1f00000000ffff
	v = (v | v<<16) & 0x1f0000ff0000ff
	v = (v | v<<8) & 0x100f00f00f00f00f
	v = (v | v<<4) & 0x10c30c30c30c30c3
	v = (v | v<<2) & 0x1249249249249249
	return v
}

// combine3 is the inverse of split3.
func combine3(z uint64) uint64 {
	z &= 0x1249249249249249
	z = (z ^ (z >> 2)) & 0x10c30c30c30c30c3
	z = (z ^ (z >> 4)) & 0x100f00f00f00f00f
	z = (z ^ (z >> 8)) & 0x1f0000ff0000ff
	z = (z ^ (z >> 16)) & 0x1f00000000ffff
	z = (z ^ (z >> 32)) & 0x1fffff
	return z
}
