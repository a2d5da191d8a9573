package requant

import "simd/archsimd"

var int16Ones = [16]int16{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}

// RowSums writes the per-row correction term -BOffset * sum(A[i][0:depth])
// for height rows of the activation block into out. When BOffset is zero
// the corrections are all zero and the input is not read.
func RowSums[T Integer8](p *Params, depth, height int, a []T, lda int, out []int32) {
	if p.BOffset == 0 {
		clear(out[:height])
		return
	}
	for i := 0; i < height; i++ {
		row := a[i*lda : i*lda+depth]
		out[i] = -p.BOffset * sumRow(row)
	}
}

func sumRow[T Integer8](row []T) int32 {
	if s, ok := any(row).([]int8); ok && cpu.HasAVX2 && len(s) >= 16 {
		return sumInt8SIMD(s)
	}
	var sum int32
	i := 0
	for ; i+3 < len(row); i += 4 {
		sum += int32(row[i]) + int32(row[i+1]) + int32(row[i+2]) + int32(row[i+3])
	}
	for ; i < len(row); i++ {
		sum += int32(row[i])
	}
	return sum
}

func sumInt8SIMD(row []int8) int32 {
	ones := archsimd.LoadInt16x16Slice(int16Ones[:])
	var acc archsimd.Int32x8
	i := 0
	for ; i+16 <= len(row); i += 16 {
		v := archsimd.LoadInt8x16Slice(row[i:]).ExtendToInt16()
		acc = acc.Add(v.DotProductPairs(ones))
	}

	var tmp [8]int32
	acc.Store(&tmp)
	sum := tmp[0] + tmp[1] + tmp[2] + tmp[3] + tmp[4] + tmp[5] + tmp[6] + tmp[7]
	for ; i < len(row); i++ {
		sum += int32(row[i])
	}
	return sum
}

// ColSums writes the per-column correction term
// -AOffset*sum(B[0:depth][j]) + AOffset*BOffset*depth for width columns of
// the raw weight matrix into out. The term folds the cross products of the
// affine expansion (A-a0)(B-b0) that depend only on the weights.
func ColSums[T Integer8](p *Params, width, depth int, b []T, ldb int, out []int32) {
	clear(out[:width])
	if p.AOffset == 0 {
		return
	}
	for k := 0; k < depth; k++ {
		row := b[k*ldb : k*ldb+width]
		for j, v := range row {
			out[j] += int32(v)
		}
	}
	fold := p.AOffset * p.BOffset * int32(depth)
	for j := 0; j < width; j++ {
		out[j] = -p.AOffset*out[j] + fold
	}
}
