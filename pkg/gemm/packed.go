package gemm

import "unsafe"

// packedBuffer is a typed view over the caller-owned packed weight region:
// per multi instance, a column-bias segment (one int32 per output column)
// followed by the repacked weights in (multi, K-block, N-block) traversal
// order. The view computes tile offsets with the same nested step pattern
// the packing walk uses, so pack-then-use and direct injection address
// identical bytes.
type packedBuffer[T Operand] struct {
	colBias []int32
	weights []T

	nsize    int
	ksize    int
	outWidth int
	kUnroll  int
}

func viewPacked[T Operand](buf []byte, nsize, ksize, nmulti, outWidth, kUnroll int) *packedBuffer[T] {
	if uintptr(unsafe.Pointer(unsafe.SliceData(buf)))%4 != 0 {
		panic("gemm: packed buffer must be 4-byte aligned")
	}
	biasLen := nsize * nmulti
	colBias := unsafe.Slice((*int32)(unsafe.Pointer(unsafe.SliceData(buf))), biasLen)

	rest := buf[biasLen*4:]
	elem := int(unsafe.Sizeof(*new(T)))
	var weights []T
	if len(rest) > 0 {
		weights = unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(rest))), len(rest)/elem)
	}

	return &packedBuffer[T]{
		colBias:  colBias,
		weights:  weights,
		nsize:    nsize,
		ksize:    ksize,
		outWidth: outWidth,
		kUnroll:  kUnroll,
	}
}

// multiStride is the packed-weight element count of one multi instance.
func (p *packedBuffer[T]) multiStride() int {
	return roundUp(p.nsize, p.outWidth) * roundUp(p.ksize, p.kUnroll)
}

// Tile returns the packed panel for the K-block starting at row k0
// (rounded depth kernK) and the output columns starting at n0.
func (p *packedBuffer[T]) Tile(multi, k0, kernK, n0 int) []T {
	off := multi*p.multiStride() + k0*roundUp(p.nsize, p.outWidth) + n0*kernK
	return p.weights[off:]
}

// ColBias returns the bias-correction entries for output columns n0
// onward of the given multi instance.
func (p *packedBuffer[T]) ColBias(multi, n0 int) []int32 {
	return p.colBias[multi*p.nsize+n0:]
}
