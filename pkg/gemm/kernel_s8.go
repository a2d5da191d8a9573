package gemm

import "simd/archsimd"

const (
	dotS8OutHeight = 4
	dotS8OutWidth  = 16
	dotS8KUnroll   = 4
)

// DotInt8Kernel is the reference signed 8-bit strategy: a 4x16 output
// tile whose packed panels hold each output column contiguously along K,
// so every output element is one int8 dot product. Uses 16-lane widening
// dot products on AVX2 with a scalar fallback elsewhere.
type DotInt8Kernel struct{}

func (DotInt8Kernel) Name() string   { return "dot_s8_4x16" }
func (DotInt8Kernel) OutHeight() int { return dotS8OutHeight }
func (DotInt8Kernel) OutWidth() int  { return dotS8OutWidth }
func (DotInt8Kernel) KUnroll() int   { return dotS8KUnroll }

// PackB lays the panel out column-major: roundUp(xmax-x0, 16) columns,
// each roundUp(kmax-k0, 4) deep, zero-padded past the matrix edge.
func (DotInt8Kernel) PackB(dst []int8, b []int8, ldb int, x0, xmax, k0, kmax int) {
	kernK := roundUp(kmax-k0, dotS8KUnroll)
	width := roundUp(xmax-x0, dotS8OutWidth)

	cur := 0
	for x := x0; x < x0+width; x++ {
		if x >= xmax {
			clear(dst[cur : cur+kernK])
			cur += kernK
			continue
		}
		k := k0
		for ; k < kmax; k++ {
			dst[cur] = b[k*ldb+x]
			cur++
		}
		for ; k < k0+kernK; k++ {
			dst[cur] = 0
			cur++
		}
	}
}

// Kernel computes one m x n tile. A single K pass covers the whole depth
// (k_block == K), so results overwrite the accumulator block rather than
// adding to it.
func (DotInt8Kernel) Kernel(a []int8, lda int, bPanel []int8, c []int32, ldc, m, n, k int) {
	kernK := roundUp(k, dotS8KUnroll)
	useSIMD := cpu.HasAVX2 && k >= 16

	for i := 0; i < m; i++ {
		aRow := a[i*lda : i*lda+k]
		cRow := c[i*ldc : i*ldc+n]

		for j := 0; j < n; j++ {
			q := bPanel[j*kernK : j*kernK+k]
			if useSIMD {
				cRow[j] = dotInt8SIMD(aRow, q, k)
			} else {
				cRow[j] = dotInt8Scalar(aRow, q, k)
			}
		}
	}
}

func dotInt8Scalar(a, b []int8, n int) int32 {
	var sum int32
	i := 0
	for ; i+3 < n; i += 4 {
		sum += int32(a[i])*int32(b[i]) +
			int32(a[i+1])*int32(b[i+1]) +
			int32(a[i+2])*int32(b[i+2]) +
			int32(a[i+3])*int32(b[i+3])
	}
	for ; i < n; i++ {
		sum += int32(a[i]) * int32(b[i])
	}
	return sum
}

func dotInt8SIMD(a, b []int8, n int) int32 {
	var acc archsimd.Int32x8
	i := 0
	for ; i+16 <= n; i += 16 {
		va := archsimd.LoadInt8x16Slice(a[i:]).ExtendToInt16()
		vb := archsimd.LoadInt8x16Slice(b[i:]).ExtendToInt16()
		acc = acc.Add(va.DotProductPairs(vb))
	}

	var tmp [8]int32
	acc.Store(&tmp)
	sum := tmp[0] + tmp[1] + tmp[2] + tmp[3] + tmp[4] + tmp[5] + tmp[6] + tmp[7]
	for ; i < n; i++ {
		sum += int32(a[i]) * int32(b[i])
	}
	return sum
}
