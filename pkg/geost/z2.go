package geost

// Z2Bits is the bit width of each Z2 dimension; the combined index uses 62
// bits of a uint64.
const Z2Bits = 31

// Z2 is a two-dimensional Z-order curve over point geometries.
// Instances are stateless after construction and safe for concurrent use.
type Z2 struct {
	X Dimension
	Y Dimension
}

// NewZ2 returns the standard longitude/latitude Z2 curve.
func NewZ2() Z2 {
	return Z2{
		X: NewDimension(-180, 180, Z2Bits),
		Y: NewDimension(-90, 90, Z2Bits),
	}
}

// Encode interleaves the normalized coordinates into a single sortable index.
func (z Z2) Encode(x, y float64) uint64 {
	return split2(z.X.Normalize(x)) | split2(z.Y.Normalize(y))<<1
}

// Decode returns the bin boundary coordinates of an index.
func (z Z2) Decode(idx uint64) (x, y float64) {
	return z.X.Denormalize(combine2(idx)), z.Y.Denormalize(combine2(idx >> 1))
}

// Ranges covers the box with contiguous index ranges, subject to the range
// budget (zero means DefaultMaxRanges). An inverted box yields nil.
func (z Z2) Ranges(box Box, maxRanges int) []IndexRange {
	if box.MinX > box.MaxX || box.MinY > box.MaxY {
		return nil
	}
	windows := [][2]uint64{
		{z.X.Normalize(box.MinX), z.X.Normalize(box.MaxX)},
		{z.Y.Normalize(box.MinY), z.Y.Normalize(box.MaxY)},
	}
	return decompose(windows, Z2Bits, maxRanges)
}

// split2 spreads the low 31 bits of v so a second dimension can interleave.
func split2(v uint64) uint64 {
	v &= 0x7fffffff
	v = (v ^ (v << 32)) & 0x00000000ffffffff
	v = (v ^ (v << 16)) & 0x0000ffff0000ffff
	v = (v ^ (v << 8)) & 0x00ff00ff00ff00ff
	v = (v ^ (v << 4)) & 0x0f0f0f0f0f0f0f0f
	v = (v ^ (v << 2)) & 0x3333333333333333
	v = (v ^ (v << 1)) & 0x5555555555555555
	return v
}

// combine2 is the inverse of split2.
func combine2(z uint64) uint64 {
	z &= 0x5555555555555555
	z = (z ^ (z >> 1)) & 0x3333333333333333
	z = (z ^ (z >> 2)) & 0x0f0f0f0f0f0f0f0f
	z = (z ^ (z >> 4)) & 0x00ff00ff00ff00ff
	z = (z ^ (z >> 8)) & 0x0000ffff0000ffff
	z = (z ^ (z >> 16)) & 0x00000000ffffffff
	return z
}
