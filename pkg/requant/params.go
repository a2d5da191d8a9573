// Package requant implements the integer requantization arithmetic used by
// the quantized GEMM engine: per-row and per-column sum corrections and the
// fixed-point rescale that narrows 32-bit accumulators into the 8-bit
// output type.
package requant

import "math"

// Integer8 constrains the 8-bit operand and result element types.
type Integer8 interface {
	~int8 | ~uint8
}

// Params holds the affine requantization configuration for one GEMM
// problem. Offsets are the zero points of the activation (A), weight (B)
// and output (C) tensors. Rescaling is either per-layer (single
// multiplier/shift pair) or per-channel (one pair per output column).
//
// Params may be replaced between execution waves but must not be mutated
// while an execution is in flight.
type Params struct {
	AOffset int32
	BOffset int32
	COffset int32

	PerLayerLeftShift  int32
	PerLayerRightShift int32
	PerLayerMul        int32

	PerChannelRequant     bool
	PerChannelLeftShifts  []int32
	PerChannelRightShifts []int32
	PerChannelMuls        []int32

	MinVal int32
	MaxVal int32

	// Bias is an optional per-output-column addend, applied after the sum
	// corrections and before rescaling. BiasMultiStride separates the bias
	// vectors of independent multi instances.
	Bias            []int32
	BiasMultiStride int
}

// QuantizeMultiplier converts a positive real-valued rescale factor into
// a Q0.31 fixed-point multiplier and a left/right shift pair such that
// x*scale ~= RoundingDivideByPOT(SaturatingDoublingHighMul(x<<left, mul), right).
// Scales below one produce a right shift and scales of one and above a
// left shift; exact powers of two round-trip exactly.
func QuantizeMultiplier(scale float64) (mul, leftShift, rightShift int32) {
	if scale <= 0 {
		return 0, 0, 0
	}
	frac, exp := math.Frexp(scale)
	q := int64(math.Round(frac * (1 << 31)))
	if q == 1<<31 {
		q /= 2
		exp++
	}
	if exp > 0 {
		leftShift = int32(exp)
	} else {
		rightShift = int32(-exp)
	}
	return int32(q), leftShift, rightShift
}
