package requant

import (
	"math"
	"math/rand"
	"testing"
)

func TestRowSums(t *testing.T) {
	const depth, height, lda = 37, 5, 40
	a := make([]int8, height*lda)
	rng := rand.New(rand.NewSource(1))
	for i := range a {
		a[i] = int8(rng.Intn(256) - 128)
	}

	p := &Params{BOffset: 3}
	got := make([]int32, height)
	RowSums(p, depth, height, a, lda, got)

	for i := 0; i < height; i++ {
		var sum int32
		for k := 0; k < depth; k++ {
			sum += int32(a[i*lda+k])
		}
		if want := -p.BOffset * sum; got[i] != want {
			t.Fatalf("row %d: got %d, want %d", i, got[i], want)
		}
	}

	// BOffset == 0 must zero the output without reading A.
	for i := range got {
		got[i] = 99
	}
	RowSums(&Params{}, depth, height, a, lda, got)
	for i, v := range got {
		if v != 0 {
			t.Fatalf("row %d: got %d with zero BOffset", i, v)
		}
	}
}

func TestColSums(t *testing.T) {
	const width, depth, ldb = 23, 17, 25
	b := make([]uint8, depth*ldb)
	rng := rand.New(rand.NewSource(2))
	for i := range b {
		b[i] = uint8(rng.Intn(256))
	}

	p := &Params{AOffset: -5, BOffset: 7}
	got := make([]int32, width)
	ColSums(p, width, depth, b, ldb, got)

	for j := 0; j < width; j++ {
		var sum int32
		for k := 0; k < depth; k++ {
			sum += int32(b[k*ldb+j])
		}
		want := -p.AOffset*sum + p.AOffset*p.BOffset*int32(depth)
		if got[j] != want {
			t.Fatalf("col %d: got %d, want %d", j, got[j], want)
		}
	}
}

func TestSaturatingDoublingHighMul(t *testing.T) {
	cases := []struct {
		a, b, want int32
	}{
		{0, 12345, 0},
		{1 << 30, 1 << 30, 1 << 29},
		{math.MinInt32, math.MinInt32, math.MaxInt32},
		{math.MinInt32, math.MaxInt32, math.MinInt32 + 1},
	}
	for _, c := range cases {
		if got := saturatingDoublingHighMul(c.a, c.b); got != c.want {
			t.Fatalf("sdhm(%d, %d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestRoundingDivideByPOT(t *testing.T) {
	cases := []struct {
		x, exp, want int32
	}{
		{0, 4, 0},
		{16, 4, 1},
		{24, 4, 2},  // 1.5 rounds away
		{-24, 4, -2},
		{23, 4, 1},
		{-23, 4, -1},
		{7, 0, 7},
	}
	for _, c := range cases {
		if got := roundingDivideByPOT(c.x, c.exp); got != c.want {
			t.Fatalf("rdiv(%d, %d) = %d, want %d", c.x, c.exp, got, c.want)
		}
	}
}

func TestBlockMatchesFloatReference(t *testing.T) {
	const width, height = 19, 4
	rng := rand.New(rand.NewSource(3))

	scale := 0.0037
	mul, lshift, rshift := QuantizeMultiplier(scale)
	p := &Params{
		COffset:            -12,
		PerLayerMul:        mul,
		PerLayerLeftShift:  lshift,
		PerLayerRightShift: rshift,
		MinVal:             -128,
		MaxVal:             127,
	}

	in := make([]int32, height*width)
	for i := range in {
		in[i] = int32(rng.Intn(200000) - 100000)
	}
	rowBias := make([]int32, height)
	colBias := make([]int32, width)
	bias := make([]int32, width)
	for i := range rowBias {
		rowBias[i] = int32(rng.Intn(2000) - 1000)
	}
	for j := range colBias {
		colBias[j] = int32(rng.Intn(2000) - 1000)
		bias[j] = int32(rng.Intn(200) - 100)
	}

	out := make([]int8, height*width)
	Block(p, width, height, in, width, out, width, rowBias, colBias, bias, 0)

	for i := 0; i < height; i++ {
		for j := 0; j < width; j++ {
			v := float64(in[i*width+j] + rowBias[i] + colBias[j] + bias[j])
			want := math.Round(v*scale) + float64(p.COffset)
			want = math.Min(math.Max(want, float64(p.MinVal)), float64(p.MaxVal))
			got := float64(out[i*width+j])
			if math.Abs(got-want) > 1 {
				t.Fatalf("(%d,%d): got %g, want %g", i, j, got, want)
			}
		}
	}
}

func TestBlockPerChannelAndClamp(t *testing.T) {
	const width, height = 8, 2
	muls := make([]int32, width)
	rshifts := make([]int32, width)
	lshifts := make([]int32, width)
	for j := range muls {
		m, l, s := QuantizeMultiplier(0.001 * float64(j+1))
		muls[j], lshifts[j], rshifts[j] = m, l, s
	}
	p := &Params{
		PerChannelRequant:     true,
		PerChannelMuls:        muls,
		PerChannelRightShifts: rshifts,
		PerChannelLeftShifts:  lshifts,
		MinVal:                0,
		MaxVal:                255,
	}

	in := make([]int32, height*width)
	for i := range in {
		in[i] = 500000
	}
	rowBias := make([]int32, height)
	colBias := make([]int32, width)

	out := make([]uint8, height*width)
	Block(p, width, height, in, width, out, width, rowBias, colBias, nil, 0)

	for i := 0; i < height; i++ {
		for j := 0; j < width; j++ {
			want := math.Round(500000 * 0.001 * float64(j+1))
			if want > 255 {
				want = 255
			}
			got := float64(out[i*width+j])
			if math.Abs(got-want) > 1 {
				t.Fatalf("(%d,%d): got %g, want %g", i, j, got, want)
			}
		}
	}
}

func TestQuantizeMultiplierRoundTrip(t *testing.T) {
	for _, scale := range []float64{0.9999, 0.5, 0.1, 0.0042, 1e-6, 1.0, 1.3, 2.5, 4.0} {
		mul, left, right := QuantizeMultiplier(scale)
		if mul <= 0 {
			t.Fatalf("scale %g: non-positive multiplier %d", scale, mul)
		}
		x := int32(1_000_000)
		got := float64(roundingDivideByPOT(saturatingDoublingHighMul(x<<left, mul), right))
		want := float64(x) * scale
		if math.Abs(got-want) > math.Abs(want)*1e-6+1 {
			t.Fatalf("scale %g: got %g, want %g", scale, got, want)
		}
	}
}

func TestQuantizeMultiplierUnitScale(t *testing.T) {
	mul, left, right := QuantizeMultiplier(1.0)
	for _, x := range []int32{0, 1, -1, 7, -7, 123456, -987654} {
		if got := roundingDivideByPOT(saturatingDoublingHighMul(x<<left, mul), right); got != x {
			t.Fatalf("rescale by 1.0 of %d = %d", x, got)
		}
	}
}
