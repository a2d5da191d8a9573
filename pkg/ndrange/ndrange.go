// Package ndrange provides a flat-indexable 4-dimensional iteration window.
//
// A Window describes the extents of an iteration space; every point in the
// space has a single scalar index, with dimension 0 varying fastest. A
// scheduler can carve the flat index range [0, TotalSize()) into arbitrary
// sub-ranges and hand each to a worker, which walks its slice with an
// Iterator.
package ndrange

// Window is an immutable description of a 4-D iteration space.
type Window struct {
	sizes [4]int
	cum   [4]int
}

// New returns a window with the given per-dimension extents.
func New(d0, d1, d2, d3 int) Window {
	w := Window{sizes: [4]int{d0, d1, d2, d3}}
	total := 1
	for i, s := range w.sizes {
		total *= s
		w.cum[i] = total
	}
	return w
}

// TotalSize reports the number of points in the window.
func (w Window) TotalSize() int {
	return w.cum[3]
}

// Size reports the extent of dimension d.
func (w Window) Size(d int) int {
	return w.sizes[d]
}

// Iterator walks the flat positions [start, end). Dimension 0 is exhausted
// before any higher dimension advances, matching the order the positions
// were flattened in.
type Iterator struct {
	w   Window
	pos int
	end int
}

// Iterator returns an iterator over the flat sub-range [start, end),
// clamped to the window size.
func (w Window) Iterator(start, end int) *Iterator {
	if end > w.cum[3] {
		end = w.cum[3]
	}
	return &Iterator{w: w, pos: start, end: end}
}

// Done reports whether the iterator has passed the end of its range.
func (it *Iterator) Done() bool {
	return it.pos >= it.end
}

// Dim returns the coordinate of the current position in dimension d.
func (it *Iterator) Dim(d int) int {
	r := it.pos
	if d < 3 {
		r %= it.w.cum[d]
	}
	if d > 0 {
		r /= it.w.cum[d-1]
	}
	return r
}

// NextDim0 advances to the next position and reports whether one remains
// within the iterator's range.
func (it *Iterator) NextDim0() bool {
	it.pos++
	return !it.Done()
}
