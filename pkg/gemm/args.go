package gemm

import (
	"runtime"

	"github.com/kestrel-ml/qgemm/pkg/cpuinfo"
)

// Operand constrains the activation/weight element type.
type Operand interface {
	~int8 | ~uint8
}

// Result constrains the requantized output element type.
type Result interface {
	~int8 | ~uint8
}

// Args fixes a problem shape for the lifetime of one engine instance.
type Args struct {
	CPU *cpuinfo.Info

	M, N, K int

	// Batches counts activation batches sharing one weight matrix; Multis
	// counts fully independent problems (separate weights and outputs)
	// driven by the same engine.
	Batches int
	Multis  int

	// MaxThreads bounds the thread ids that may be passed to Execute and
	// sizes the working space.
	MaxThreads int

	// Cfg optionally forces the blocking parameters instead of deriving
	// them from the cache sizes.
	Cfg *Config
}

func (a *Args) fill() {
	if a.Batches == 0 {
		a.Batches = 1
	}
	if a.Multis == 0 {
		a.Multis = 1
	}
	if a.MaxThreads <= 0 {
		a.MaxThreads = runtime.GOMAXPROCS(0)
	}
	if a.CPU == nil {
		a.CPU = cpuinfo.Detect()
	}
	if a.M <= 0 || a.N <= 0 || a.K <= 0 || a.Batches < 0 || a.Multis < 0 {
		panic("gemm: invalid problem shape")
	}
}

// Config reports (or, set on Args, forces) an engine's blocking selection.
type Config struct {
	Method         string `json:"method"`
	Filter         string `json:"filter"`
	InnerBlockSize int    `json:"inner_block_size"`
	OuterBlockSize int    `json:"outer_block_size"`
}
