//go:build linux

package cpuinfo

import "testing"

func TestParseSize(t *testing.T) {
	cases := map[string]int{
		"32K":  32 * 1024,
		"1M":   1024 * 1024,
		"512":  512,
		"":     0,
		"junk": 0,
	}
	for in, want := range cases {
		if got := parseSize(in); got != want {
			t.Fatalf("parseSize(%q) = %d, want %d", in, got, want)
		}
	}
}
