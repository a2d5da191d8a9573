package gemm

import "unsafe"

// computeKBlock selects the reduction-dimension block size. Results are
// staged as 32-bit values in the working buffer and written out in a
// single requantize pass, so partial-K accumulation is not supported and
// the full depth is always consumed in one block. The cache-driven sizing
// lives in cacheKBlock; restoring it would also require Execute and the
// output write to accumulate across K blocks instead of overwriting.
func computeKBlock[T Operand](args Args, strat Strategy[T]) int {
	return args.K
}

// cacheKBlock is the cache-driven K block sizing the engine would use if
// partial-K accumulation were supported: fit one row of the larger
// operand tile into half the L1, then spread K evenly over the resulting
// block count. The result is always a positive multiple of the kernel's
// K unroll, whatever the cache sizes.
func cacheKBlock[T Operand](args Args, strat Strategy[T]) int {
	ku := strat.KUnroll()
	if args.Cfg != nil && args.Cfg.InnerBlockSize > 0 {
		return roundUp(args.Cfg.InnerBlockSize, ku)
	}

	elem := int(unsafe.Sizeof(*new(T)))
	kBlock := (args.CPU.L1Size() / 2) / (elem * max(strat.OutWidth(), strat.OutHeight()))

	kBlock /= ku
	kBlock = max(kBlock, 1) * ku

	// Tune to the presented problem: spread K over that many blocks.
	numKBlocks := iceildiv(args.K, kBlock)
	kBlock = iceildiv(args.K, numKBlocks)

	return roundUp(kBlock, ku)
}

// computeNBlock selects the output-column block size: how many columns of
// one K-block panel fit in 90% of the L2 next to the activation tile.
// The result is always a positive multiple of the kernel's output width,
// whatever the cache sizes.
func computeNBlock[T Operand](args Args, strat Strategy[T], kBlock int) int {
	ow := strat.OutWidth()
	if args.Cfg != nil && args.Cfg.OuterBlockSize > 0 {
		nBlock := args.Cfg.OuterBlockSize / ow
		return max(nBlock, 1) * ow
	}

	elem := int(unsafe.Sizeof(*new(T)))

	// Don't allocate more than 90% of the L2, to allow for overheads.
	scaledL2 := args.CPU.L2Size() * 9 / 10
	kBlockArea := kBlock * elem * (ow + strat.OutHeight())

	// If one K-block's operand footprint already exceeds the budget, fall
	// back to a single minimal block.
	if kBlockArea > scaledL2 {
		return ow
	}

	nBlock := (scaledL2 - kBlockArea) / (elem * kBlock)
	nBlock /= ow
	nBlock = max(nBlock, 1) * ow

	numBlocks := iceildiv(args.N, nBlock)
	nBlock = iceildiv(args.N, numBlocks)

	return roundUp(nBlock, ow)
}
