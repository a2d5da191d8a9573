package gemm

import (
	"unsafe"

	"github.com/kestrel-ml/qgemm/pkg/ndrange"
	"github.com/kestrel-ml/qgemm/pkg/requant"
)

// HybridQuantized is the dynamically schedulable quantized GEMM engine.
// The problem shape and blocking parameters are fixed at construction;
// the engine is in the unpacked state until PretransposeB or
// SetPretransposedBData resolves the weight buffer, after which Execute
// and quantization-parameter updates become legal. There is no reverse
// transition.
type HybridQuantized[T Operand, TR Result] struct {
	strat Strategy[T]

	msize    int
	nsize    int
	ksize    int
	nbatches int
	nmulti   int

	kBlock int
	nBlock int

	window ndrange.Window

	qp requant.Params

	pb *packedBuffer[T]

	nthreads int

	a            []T
	lda          int
	aBatchStride int
	aMultiStride int

	c            []TR
	ldc          int
	cBatchStride int
	cMultiStride int

	workspace []int32

	prof Profiler
}

// NewHybridQuantized builds an engine for the given problem shape with
// the given micro-kernel binding and initial quantization parameters.
func NewHybridQuantized[T Operand, TR Result](strat Strategy[T], args Args, qp requant.Params) *HybridQuantized[T, TR] {
	args.fill()

	kBlock := computeKBlock(args, strat)
	nBlock := computeNBlock(args, strat, kBlock)

	return &HybridQuantized[T, TR]{
		strat:    strat,
		msize:    args.M,
		nsize:    args.N,
		ksize:    args.K,
		nbatches: args.Batches,
		nmulti:   args.Multis,
		kBlock:   kBlock,
		nBlock:   nBlock,
		window: ndrange.New(
			iceildiv(args.M, strat.OutHeight()),
			args.Batches,
			iceildiv(args.N, nBlock),
			args.Multis,
		),
		qp:       qp,
		nthreads: args.MaxThreads,
	}
}

func (g *HybridQuantized[T, TR]) WindowSize() int {
	return g.window.TotalSize()
}

// SupportsDynamicScheduling is always true: every work item reads and
// writes regions determined purely by its own indices.
func (g *HybridQuantized[T, TR]) SupportsDynamicScheduling() bool {
	return true
}

// SetArrays binds the activation and output buffers. Strides are in
// elements. Must not be called while an Execute is in flight.
func (g *HybridQuantized[T, TR]) SetArrays(a []T, lda, aBatchStride, aMultiStride int, c []TR, ldc, cBatchStride, cMultiStride int) {
	g.a, g.lda, g.aBatchStride, g.aMultiStride = a, lda, aBatchStride, aMultiStride
	g.c, g.ldc, g.cBatchStride, g.cMultiStride = c, ldc, cBatchStride, cMultiStride
}

// WorkingSize reports the scratch requirement:
// threads x tile height x N 32-bit accumulators.
func (g *HybridQuantized[T, TR]) WorkingSize() int {
	return g.nthreads * g.strat.OutHeight() * g.nsize * int(unsafe.Sizeof(int32(0)))
}

// SetWorkingSpace installs the caller-owned accumulator scratch. Thread i
// owns the fixed sub-range [i*OutHeight*N, (i+1)*OutHeight*N); the
// regions never overlap, so no locking is needed.
func (g *HybridQuantized[T, TR]) SetWorkingSpace(buf []int32) {
	g.workspace = buf
}

func (g *HybridQuantized[T, TR]) BIsPretransposed() bool {
	return true
}

func (g *HybridQuantized[T, TR]) BPretransposeRequired() bool {
	return g.pb == nil
}

func (g *HybridQuantized[T, TR]) colSumSize() int {
	return g.nsize * g.nmulti * int(unsafe.Sizeof(int32(0)))
}

// BPretransposedArraySize reports the byte size of the packed buffer:
// the column-bias segment plus the repacked weights, padded to the
// kernel's width and unroll granularity.
func (g *HybridQuantized[T, TR]) BPretransposedArraySize() int {
	elem := int(unsafe.Sizeof(*new(T)))
	weights := roundUp(g.nsize, g.strat.OutWidth()) * roundUp(g.ksize, g.strat.KUnroll()) * g.nmulti * elem
	return g.colSumSize() + weights
}

func (g *HybridQuantized[T, TR]) view(buf []byte) *packedBuffer[T] {
	return viewPacked[T](buf, g.nsize, g.ksize, g.nmulti, g.strat.OutWidth(), g.strat.KUnroll())
}

// RequantizeBias recomputes the per-output-column bias corrections from
// the raw weights into the leading segment of buf, leaving any packed
// weight data untouched.
func (g *HybridQuantized[T, TR]) RequantizeBias(buf []byte, b []T, ldb, bMultiStride int) {
	pb := g.view(buf)
	for i := 0; i < g.nmulti; i++ {
		requant.ColSums(&g.qp, g.nsize, g.ksize, b[i*bMultiStride:], ldb, pb.colBias[i*g.nsize:(i+1)*g.nsize])
	}
}

// PretransposeB computes the bias segment and repacks the raw row-major
// weights into buf, walking multis, then K-blocks, then N-blocks. The
// traversal order is load-bearing: Execute recomputes tile offsets with
// the identical nested step pattern.
func (g *HybridQuantized[T, TR]) PretransposeB(buf []byte, b []T, ldb, bMultiStride int, transposed bool) {
	if transposed {
		panic("gemm: pre-transposed weight input is not supported")
	}

	g.RequantizeBias(buf, b, ldb, bMultiStride)

	pb := g.view(buf)
	ow := g.strat.OutWidth()
	ku := g.strat.KUnroll()

	cur := 0
	for multi := 0; multi < g.nmulti; multi++ {
		bm := b[multi*bMultiStride:]
		for k0 := 0; k0 < g.ksize; k0 += g.kBlock {
			kmax := min(k0+g.kBlock, g.ksize)
			kernK := roundUp(kmax-k0, ku)

			for x0 := 0; x0 < g.nsize; x0 += g.nBlock {
				xmax := min(x0+g.nBlock, g.nsize)
				size := roundUp(xmax-x0, ow) * kernK

				g.strat.PackB(pb.weights[cur:cur+size], bm, ldb, x0, xmax, k0, kmax)
				cur += size
			}
		}
	}

	g.pb = pb
}

// SetPretransposedBData adopts a buffer already laid out as PretransposeB
// would have produced it: bias segment first, packed weights at the
// documented offset.
func (g *HybridQuantized[T, TR]) SetPretransposedBData(buf []byte) {
	g.pb = g.view(buf)
}

// SetQuantizedBias rebinds just the bias vector used at requantization
// time, without touching the precomputed column-bias segment.
func (g *HybridQuantized[T, TR]) SetQuantizedBias(bias []int32, biasMultiStride int) {
	g.qp.Bias = bias
	g.qp.BiasMultiStride = biasMultiStride
}

func (g *HybridQuantized[T, TR]) Config() Config {
	return Config{
		Method:         "hybrid_quantized",
		Filter:         g.strat.Name(),
		InnerBlockSize: g.kBlock,
		OuterBlockSize: g.nBlock,
	}
}

// UpdateQuantizationParameters replaces the requantization configuration
// in place. The precomputed column-bias segment is not touched; callers
// that changed the offsets it depends on re-run RequantizeBias. Must not
// overlap an Execute call.
func (g *HybridQuantized[T, TR]) UpdateQuantizationParameters(p requant.Params) {
	g.qp = p
}

// SetProfiler installs optional scoped cost-recording hooks around the
// kernel, row-sum and requantize phases. Purely observational.
func (g *HybridQuantized[T, TR]) SetProfiler(p Profiler) {
	g.prof = p
}

func (g *HybridQuantized[T, TR]) scope(ph Phase, work int) func() {
	if g.prof == nil {
		return noopScope
	}
	return g.prof.Scope(ph, work)
}

// Execute runs the flat window sub-range [start, end) as thread threadID.
// Each work item resolves its own M range, batch, N range and multi
// index, multiplies into the thread-private scratch region and
// requantizes straight into the output buffer. The K loop always covers
// the full depth within one call; with kBlock == K it makes a single
// pass, so the kernel overwrites rather than accumulates.
func (g *HybridQuantized[T, TR]) Execute(start, end, threadID int) {
	if start >= end {
		return
	}
	if g.pb == nil {
		panic("gemm: Execute called before the weight buffer was set")
	}

	outHeight := g.strat.OutHeight()
	if len(g.workspace) < (threadID+1)*outHeight*g.nsize {
		panic("gemm: working space not set or too small for thread id")
	}
	ws := g.workspace[threadID*outHeight*g.nsize : (threadID+1)*outHeight*g.nsize]
	rowSums := make([]int32, outHeight)

	for k0 := 0; k0 < g.ksize; k0 += g.kBlock {
		kmax := min(k0+g.kBlock, g.ksize)
		kernK := roundUp(kmax-k0, g.strat.KUnroll())

		p := g.window.Iterator(start, end)
		if p.Done() {
			return
		}

		for ok := true; ok; ok = p.NextDim0() {
			mStart := p.Dim(0) * outHeight
			mEnd := min(mStart+outHeight, g.msize)
			batch := p.Dim(1)
			n0 := p.Dim(2) * g.nBlock
			nmax := min(n0+g.nBlock, g.nsize)
			multi := p.Dim(3)

			height := mEnd - mStart
			width := nmax - n0

			bPanel := g.pb.Tile(multi, k0, kernK, n0)
			aRow := g.a[multi*g.aMultiStride+batch*g.aBatchStride+mStart*g.lda:]

			stop := g.scope(PhaseKernel, height*kernK*roundUp(width, g.strat.OutWidth()))
			g.strat.Kernel(aRow[k0:], g.lda, bPanel, ws, width, height, width, kmax-k0)
			stop()

			stop = g.scope(PhaseRowSums, height*g.ksize)
			requant.RowSums(&g.qp, g.ksize, height, aRow, g.lda, rowSums)
			stop()

			var bias []int32
			if g.qp.Bias != nil {
				bias = g.qp.Bias[multi*g.qp.BiasMultiStride:]
			}
			cOut := g.c[multi*g.cMultiStride+batch*g.cBatchStride+mStart*g.ldc+n0:]

			stop = g.scope(PhaseRequantize, height*g.nsize)
			requant.Block(&g.qp, width, height, ws, width, cOut, g.ldc, rowSums, g.pb.ColBias(multi, n0), bias, n0)
			stop()
		}
	}
}
