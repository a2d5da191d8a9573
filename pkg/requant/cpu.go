package requant

import "simd/archsimd"

type cpuFeatures struct {
	HasAVX2 bool
}

var cpu cpuFeatures

func init() {
	cpu.HasAVX2 = archsimd.X86.AVX2()
}
