//go:build linux

package cpuinfo

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const cacheDir = "/sys/devices/system/cpu/cpu0/cache"

// detectCacheSizes walks the cpu0 cache hierarchy in sysfs. Any index that
// cannot be read is skipped; missing levels fall back to defaults.
func detectCacheSizes() (l1, l2 int) {
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		return 0, 0
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "index") {
			continue
		}
		dir := filepath.Join(cacheDir, e.Name())
		level := readInt(filepath.Join(dir, "level"))
		typ := readString(filepath.Join(dir, "type"))
		size := parseSize(readString(filepath.Join(dir, "size")))
		if size <= 0 {
			continue
		}
		switch {
		case level == 1 && typ != "Instruction":
			l1 = size
		case level == 2:
			l2 = size
		}
	}
	return l1, l2
}

func readString(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func readInt(path string) int {
	n, err := strconv.Atoi(readString(path))
	if err != nil {
		return 0
	}
	return n
}

// parseSize handles the sysfs "32K" / "1M" notation.
func parseSize(s string) int {
	if s == "" {
		return 0
	}
	mult := 1
	switch s[len(s)-1] {
	case 'K':
		mult = 1024
		s = s[:len(s)-1]
	case 'M':
		mult = 1024 * 1024
		s = s[:len(s)-1]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n * mult
}
