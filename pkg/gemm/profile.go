package gemm

import (
	"sync"
	"time"
)

// Phase identifies one of the engine's per-item cost centers.
type Phase int

const (
	PhaseKernel Phase = iota
	PhaseRowSums
	PhaseRequantize
	numPhases
)

func (p Phase) String() string {
	switch p {
	case PhaseKernel:
		return "kernel"
	case PhaseRowSums:
		return "rowsums"
	case PhaseRequantize:
		return "requantize"
	default:
		return "unknown"
	}
}

// Profiler receives scoped cost records around each execution phase.
// Scope is called when a phase begins with an estimate of the work in
// elements; the returned func is called when the phase ends. Hooks are
// purely observational and must not affect results.
type Profiler interface {
	Scope(phase Phase, work int) func()
}

var noopScope = func() {}

// Recorder is a Profiler that aggregates wall time, work and call counts
// per phase. Safe for concurrent use by the worker threads.
type Recorder struct {
	mu     sync.Mutex
	totals [numPhases]time.Duration
	work   [numPhases]int64
	calls  [numPhases]int64
}

// PhaseStats is one phase's aggregate as reported by Stats.
type PhaseStats struct {
	Phase string        `json:"phase"`
	Calls int64         `json:"calls"`
	Work  int64         `json:"work"`
	Total time.Duration `json:"total_ns"`
}

func (r *Recorder) Scope(phase Phase, work int) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		r.mu.Lock()
		r.totals[phase] += d
		r.work[phase] += int64(work)
		r.calls[phase]++
		r.mu.Unlock()
	}
}

// Stats returns a snapshot of the per-phase aggregates.
func (r *Recorder) Stats() []PhaseStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]PhaseStats, 0, numPhases)
	for p := Phase(0); p < numPhases; p++ {
		out = append(out, PhaseStats{
			Phase: p.String(),
			Calls: r.calls[p],
			Work:  r.work[p],
			Total: r.totals[p],
		})
	}
	return out
}
