package gemm

import (
	"runtime"
	"sync"
)

// Run executes the engine's whole work window, splitting the flat index
// range into contiguous chunks across up to threads workers. Contiguous
// chunks are just the simplest valid partition: the engine accepts any
// disjoint assignment of sub-ranges to thread ids and produces identical
// output. threads must not exceed the MaxThreads the engine was built
// with, since thread ids address fixed slices of the working space.
func Run[T Operand, TR Result](e Engine[T, TR], threads int) {
	total := e.WindowSize()
	if total == 0 {
		return
	}
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	if threads > total {
		threads = total
	}
	if threads <= 1 {
		e.Execute(0, total, 0)
		return
	}

	chunk := iceildiv(total, threads)
	var wg sync.WaitGroup
	for t := 0; t*chunk < total; t++ {
		start := t * chunk
		end := min(start+chunk, total)
		wg.Add(1)
		go func(start, end, id int) {
			defer wg.Done()
			e.Execute(start, end, id)
		}(start, end, t)
	}
	wg.Wait()
}
