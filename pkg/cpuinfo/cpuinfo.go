// Package cpuinfo reports the cache geometry and instruction-set features
// the blocking heuristics and kernels key off.
package cpuinfo

import "golang.org/x/sys/cpu"

const (
	defaultL1Size = 32 * 1024
	defaultL2Size = 512 * 1024
)

// Info describes the executing CPU. Zero or negative cache sizes are never
// reported; detection failures fall back to conservative defaults.
type Info struct {
	l1Size int
	l2Size int

	HasAVX2   bool
	HasAVX512 bool
	HasNEON   bool
}

// New returns an Info with explicit cache sizes, primarily for tests and
// for callers that know their deployment hardware.
func New(l1Size, l2Size int) *Info {
	info := &Info{l1Size: l1Size, l2Size: l2Size}
	info.detectFeatures()
	return info
}

// Detect probes the host for cache sizes and features.
func Detect() *Info {
	l1, l2 := detectCacheSizes()
	return New(l1, l2)
}

func (i *Info) detectFeatures() {
	i.HasAVX2 = cpu.X86.HasAVX2
	i.HasAVX512 = cpu.X86.HasAVX512F && cpu.X86.HasAVX512VL
	i.HasNEON = cpu.ARM64.HasASIMD
}

// L1Size reports the per-core L1 data cache size in bytes.
func (i *Info) L1Size() int {
	if i.l1Size <= 0 {
		return defaultL1Size
	}
	return i.l1Size
}

// L2Size reports the per-core L2 cache size in bytes.
func (i *Info) L2Size() int {
	if i.l2Size <= 0 {
		return defaultL2Size
	}
	return i.l2Size
}
