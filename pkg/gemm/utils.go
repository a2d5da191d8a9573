package gemm

func iceildiv(a, b int) int {
	return (a + b - 1) / b
}

func roundUp(a, b int) int {
	return iceildiv(a, b) * b
}
