package ndrange

import "testing"

func TestTotalSize(t *testing.T) {
	w := New(3, 4, 5, 2)
	if got := w.TotalSize(); got != 120 {
		t.Fatalf("TotalSize = %d, want 120", got)
	}
	if got := New(1, 1, 1, 1).TotalSize(); got != 1 {
		t.Fatalf("unit window TotalSize = %d, want 1", got)
	}
	if got := New(3, 0, 5, 2).TotalSize(); got != 0 {
		t.Fatalf("empty window TotalSize = %d, want 0", got)
	}
}

func TestIteratorCoversWindowInOrder(t *testing.T) {
	w := New(3, 2, 4, 2)
	it := w.Iterator(0, w.TotalSize())

	count := 0
	want := [4]int{0, 0, 0, 0}
	for ok := !it.Done(); ok; ok = it.NextDim0() {
		for d := range 4 {
			if got := it.Dim(d); got != want[d] {
				t.Fatalf("pos %d dim %d = %d, want %d", count, d, got, want[d])
			}
		}
		count++
		// Advance the expected coordinate with dim 0 innermost.
		for d := range 4 {
			want[d]++
			if want[d] < w.Size(d) {
				break
			}
			want[d] = 0
		}
	}
	if count != w.TotalSize() {
		t.Fatalf("iterated %d points, want %d", count, w.TotalSize())
	}
}

func TestIteratorSubRange(t *testing.T) {
	w := New(5, 3, 2, 2)
	total := w.TotalSize()

	// Any split of [0, total) visits each flat position exactly once.
	seen := make([]int, total)
	for _, r := range [][2]int{{0, 17}, {17, 23}, {23, total}} {
		it := w.Iterator(r[0], r[1])
		pos := r[0]
		for ok := !it.Done(); ok; ok = it.NextDim0() {
			flat := it.Dim(0) + w.Size(0)*(it.Dim(1)+w.Size(1)*(it.Dim(2)+w.Size(2)*it.Dim(3)))
			if flat != pos {
				t.Fatalf("flat position %d, want %d", flat, pos)
			}
			seen[flat]++
			pos++
		}
	}
	for i, n := range seen {
		if n != 1 {
			t.Fatalf("position %d visited %d times", i, n)
		}
	}
}

func TestIteratorEmptyAndClamped(t *testing.T) {
	w := New(2, 2, 2, 2)
	if it := w.Iterator(5, 5); !it.Done() {
		t.Fatal("empty range iterator not done")
	}
	if it := w.Iterator(10, 4); !it.Done() {
		t.Fatal("inverted range iterator not done")
	}

	// End beyond the window is clamped.
	it := w.Iterator(14, 100)
	count := 0
	for ok := !it.Done(); ok; ok = it.NextDim0() {
		count++
	}
	if count != 2 {
		t.Fatalf("clamped range visited %d points, want 2", count)
	}
}
