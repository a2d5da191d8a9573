// Package gemm implements a blocked, multi-threaded, quantized GEMM
// execution engine. An engine multiplies int8/uint8 activations by a
// pre-packed weight matrix, accumulates in int32 and requantizes the
// result into the 8-bit output type, across batches and independent
// multi instances.
//
// The work an engine performs is described by a flat window of
// independent items (M-tile x batch x N-tile x multi); a scheduler may
// split the window into arbitrary disjoint sub-ranges and run them on any
// threads in any order without changing the output.
package gemm

import "github.com/kestrel-ml/qgemm/pkg/requant"

// Strategy is the micro-kernel capability an engine is parameterized
// over: the output tile geometry plus the multiply-accumulate and
// weight-packing entry points.
type Strategy[T Operand] interface {
	Name() string
	OutHeight() int
	OutWidth() int
	KUnroll() int

	// Kernel multiplies an m x k activation block (row stride lda) by a
	// packed weight panel and writes the m x n int32 result into c with
	// row stride ldc. The panel holds n columns padded to OutWidth, each
	// roundUp(k, KUnroll) elements deep.
	Kernel(a []T, lda int, bPanel []T, c []int32, ldc, m, n, k int)

	// PackB repacks columns [x0, xmax) over depth rows [k0, kmax) of the
	// raw row-major weight matrix (row stride ldb) into dst, in the layout
	// Kernel consumes. It writes exactly
	// roundUp(xmax-x0, OutWidth) * roundUp(kmax-k0, KUnroll) elements.
	PackB(dst []T, b []T, ldb int, x0, xmax, k0, kmax int)
}

// Engine is the operation set a scheduler drives a GEMM variant through.
// HybridQuantized is the implementation in this package; sibling
// scheduling strategies are separate implementing types.
type Engine[T Operand, TR Result] interface {
	// WindowSize reports the total flat work-item count.
	WindowSize() int

	// SupportsDynamicScheduling reports whether sub-ranges of the window
	// may be assigned to threads in any order, including work stealing.
	SupportsDynamicScheduling() bool

	// SetArrays binds the activation input and the output buffer with
	// their row, batch and multi strides (in elements).
	SetArrays(a []T, lda, aBatchStride, aMultiStride int, c []TR, ldc, cBatchStride, cMultiStride int)

	// Execute runs the flat window sub-range [start, end) as the worker
	// with the given thread id. It is synchronous and returns only when
	// the sub-range is complete.
	Execute(start, end, threadID int)

	// WorkingSize reports the scratch requirement in bytes;
	// SetWorkingSpace installs the caller-owned int32 scratch it sizes.
	WorkingSize() int
	SetWorkingSpace(buf []int32)

	BIsPretransposed() bool
	BPretransposeRequired() bool
	BPretransposedArraySize() int

	// RequantizeBias recomputes only the column-bias segment of the
	// packed buffer from the raw weights.
	RequantizeBias(buf []byte, b []T, ldb, bMultiStride int)

	// PretransposeB fills buf (sized by BPretransposedArraySize) with the
	// column-bias segment followed by the repacked weights, and marks the
	// engine ready to execute.
	PretransposeB(buf []byte, b []T, ldb, bMultiStride int, transposed bool)

	// SetPretransposedBData adopts an already-packed buffer laid out as
	// PretransposeB would have produced it.
	SetPretransposedBData(buf []byte)

	SetQuantizedBias(bias []int32, biasMultiStride int)
	Config() Config
	UpdateQuantizationParameters(p requant.Params)
}
