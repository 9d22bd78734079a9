package geost

import "math"

// Dimension maps a continuous coordinate into a fixed-width non-negative
// integer and back. Precision is a power-of-two-minus-one mask sized to the
// bit slot the dimension occupies in a curve index.
//
// Dimensions are immutable and constructed once per curve instance.
type Dimension struct {
	Min       float64
	Max       float64
	Precision uint64
}

// NewDimension creates a dimension spanning [min, max] quantized to the given
// bit width.
func NewDimension(min, max float64, bits uint) Dimension {
	return Dimension{Min: min, Max: max, Precision: 1<<bits - 1}
}

// Normalize maps x into [0, Precision]. Out-of-range values clamp to the
// boundary bins rather than erroring. A value exactly on a bin boundary
// rounds up into the upper bin, which keeps Normalize consistent with the
// inverse mapping Denormalize uses on the decode side.
func (d Dimension) Normalize(x float64) uint64 {
	if x <= d.Min {
		return 0
	}
	if x >= d.Max {
		return d.Precision
	}
	v := math.Ceil((x - d.Min) / (d.Max - d.Min) * float64(d.Precision))
	if v <= 0 {
		return 0
	}
	if v >= float64(d.Precision) {
		return d.Precision
	}
	return uint64(v)
}

// Denormalize maps a normalized value back into coordinate space. Lossy: it
// reconstructs the bin boundary, not the original value.
func (d Dimension) Denormalize(v uint64) float64 {
	return float64(v)/float64(d.Precision)*(d.Max-d.Min) + d.Min
}

// BinWidth is the coordinate width of one normalized bin.
func (d Dimension) BinWidth() float64 {
	return (d.Max - d.Min) / float64(d.Precision)
}
