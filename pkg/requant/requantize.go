package requant

import "math"

// Block rescales a height x width block of 32-bit accumulators into the
// 8-bit output type, writing directly into the caller's output buffer.
//
// Each element receives the row correction for its row, the column bias
// for its column and the optional user bias, is rescaled by the per-layer
// or per-channel fixed-point multiplier/shift, offset by COffset and
// clamped to [MinVal, MaxVal]. Per-channel arrays and the bias slice are
// indexed by firstCol+j so a block starting at output column firstCol
// picks up the right channels.
func Block[TR Integer8](p *Params, width, height int, in []int32, inStride int, out []TR, outStride int, rowBias, colBias, bias []int32, firstCol int) {
	for i := 0; i < height; i++ {
		inRow := in[i*inStride : i*inStride+width]
		outRow := out[i*outStride : i*outStride+width]

		for j := 0; j < width; j++ {
			mul := p.PerLayerMul
			leftShift := p.PerLayerLeftShift
			rightShift := p.PerLayerRightShift
			if p.PerChannelRequant {
				mul = p.PerChannelMuls[firstCol+j]
				leftShift = p.PerChannelLeftShifts[firstCol+j]
				rightShift = p.PerChannelRightShifts[firstCol+j]
			}

			v := inRow[j] + rowBias[i] + colBias[j]
			if bias != nil {
				v += bias[firstCol+j]
			}

			v = saturatingDoublingHighMul(v<<leftShift, mul)
			v = roundingDivideByPOT(v, rightShift)
			v += p.COffset
			if v < p.MinVal {
				v = p.MinVal
			}
			if v > p.MaxVal {
				v = p.MaxVal
			}
			outRow[j] = TR(v)
		}
	}
}

// saturatingDoublingHighMul returns the high 32 bits of 2*a*b with
// round-to-nearest, saturating the single overflow case.
func saturatingDoublingHighMul(a, b int32) int32 {
	if a == math.MinInt32 && b == math.MinInt32 {
		return math.MaxInt32
	}
	ab := int64(a) * int64(b)
	var nudge int64 = 1 << 30
	if ab < 0 {
		nudge = 1 - (1 << 30)
	}
	// Truncating division, not an arithmetic shift: the two differ for
	// negative products and the truncating form is the defined rounding.
	return int32((ab + nudge) / (1 << 31))
}

// roundingDivideByPOT divides by 2^exponent with round-to-nearest,
// ties away from zero.
func roundingDivideByPOT(x, exponent int32) int32 {
	if exponent == 0 {
		return x
	}
	mask := int32(1)<<exponent - 1
	remainder := x & mask
	threshold := mask >> 1
	if x < 0 {
		threshold++
	}
	result := x >> exponent
	if remainder > threshold {
		result++
	}
	return result
}
