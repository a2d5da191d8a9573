package gemm

import (
	"math/rand"
	"testing"
)

func fillInt8(s []int8, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for i := range s {
		s[i] = int8(rng.Intn(256) - 128)
	}
}

func TestPackBPadsTile(t *testing.T) {
	strat := DotInt8Kernel{}
	const n, k, ldb = 13, 10, 13
	b := make([]int8, k*ldb)
	fillInt8(b, 1)

	kernK := roundUp(k, strat.KUnroll())
	dst := make([]int8, roundUp(n, strat.OutWidth())*kernK)
	for i := range dst {
		dst[i] = 0x55
	}
	strat.PackB(dst, b, ldb, 0, n, 0, k)

	for x := 0; x < roundUp(n, strat.OutWidth()); x++ {
		for kk := 0; kk < kernK; kk++ {
			got := dst[x*kernK+kk]
			var want int8
			if x < n && kk < k {
				want = b[kk*ldb+x]
			}
			if got != want {
				t.Fatalf("packed[%d][%d] = %d, want %d", x, kk, got, want)
			}
		}
	}
}

func TestKernelMatchesNaive(t *testing.T) {
	strat := DotInt8Kernel{}
	shapes := [][3]int{
		{4, 16, 32},
		{3, 13, 10},
		{1, 16, 1},
		{4, 16, 100},
		{2, 5, 17},
	}
	for _, s := range shapes {
		m, n, k := s[0], s[1], s[2]
		lda := k + 3
		ldb := n

		a := make([]int8, m*lda)
		b := make([]int8, k*ldb)
		fillInt8(a, int64(m*100+n))
		fillInt8(b, int64(k))

		kernK := roundUp(k, strat.KUnroll())
		panel := make([]int8, roundUp(n, strat.OutWidth())*kernK)
		strat.PackB(panel, b, ldb, 0, n, 0, k)

		c := make([]int32, m*n)
		strat.Kernel(a, lda, panel, c, n, m, n, k)

		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				var want int32
				for kk := 0; kk < k; kk++ {
					want += int32(a[i*lda+kk]) * int32(b[kk*ldb+j])
				}
				if c[i*n+j] != want {
					t.Fatalf("shape %v (%d,%d): got %d, want %d", s, i, j, c[i*n+j], want)
				}
			}
		}
	}
}

func TestDotInt8PathsAgree(t *testing.T) {
	if !cpu.HasAVX2 {
		t.Skip("no AVX2")
	}
	for _, n := range []int{16, 17, 31, 32, 100} {
		a := make([]int8, n)
		b := make([]int8, n)
		fillInt8(a, int64(n))
		fillInt8(b, int64(n)+1)
		if s, v := dotInt8Scalar(a, b, n), dotInt8SIMD(a, b, n); s != v {
			t.Fatalf("n=%d: scalar %d != simd %d", n, s, v)
		}
	}
}
