//go:build !linux

package cpuinfo

func detectCacheSizes() (l1, l2 int) {
	return 0, 0
}
