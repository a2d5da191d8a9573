package cpuinfo

import "testing"

func TestCacheSizesNeverNonPositive(t *testing.T) {
	for _, info := range []*Info{
		Detect(),
		New(0, 0),
		New(-1, -1),
		New(48*1024, 1024*1024),
	} {
		if info.L1Size() <= 0 {
			t.Fatalf("L1Size = %d", info.L1Size())
		}
		if info.L2Size() <= 0 {
			t.Fatalf("L2Size = %d", info.L2Size())
		}
	}
}

func TestExplicitSizesPreserved(t *testing.T) {
	info := New(48*1024, 2*1024*1024)
	if info.L1Size() != 48*1024 {
		t.Fatalf("L1Size = %d", info.L1Size())
	}
	if info.L2Size() != 2*1024*1024 {
		t.Fatalf("L2Size = %d", info.L2Size())
	}
}
