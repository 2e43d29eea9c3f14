// Package linebuf holds the per-stage row history used to materialise a K×K
// neighbourhood from a raster stream without buffering a whole frame.
//
// The layout follows the usual hardware arrangement: a line buffer keeps the
// trailing K-1 rows, indexed by column, and a K×K shift register is advanced
// by one column per sample. Nothing here allocates after construction.
package linebuf

// LineBuffer keeps the K-1 most recent rows of a stream, one slot per column.
type LineBuffer[T any] struct {
	rows  [][]T
	width int
}

// NewLineBuffer allocates history for a k-row kernel over width columns.
func NewLineBuffer[T any](k, width int) *LineBuffer[T] {
	rows := make([][]T, k-1)
	for i := range rows {
		rows[i] = make([]T, width)
	}
	return &LineBuffer[T]{rows: rows, width: width}
}

// Push stores v at column x and fills col, oldest row first, with the K
// values of that column ending in v. col must have length K.
func (b *LineBuffer[T]) Push(x int, v T, col []T) {
	n := len(b.rows)
	for r := 0; r < n; r++ {
		col[r] = b.rows[r][x]
	}
	col[n] = v
	for r := 0; r < n-1; r++ {
		b.rows[r][x] = b.rows[r+1][x]
	}
	if n > 0 {
		b.rows[n-1][x] = v
	}
}

// Width returns the number of columns held per row.
func (b *LineBuffer[T]) Width() int {
	return b.width
}

// Reset zeroes all history.
func (b *LineBuffer[T]) Reset() {
	var zero T
	for _, row := range b.rows {
		for i := range row {
			row[i] = zero
		}
	}
}

// Window is a K×K shift register. Column K-1 is the newest.
type Window[T any] struct {
	k     int
	cells []T
}

// NewWindow allocates a k×k window.
func NewWindow[T any](k int) *Window[T] {
	return &Window[T]{k: k, cells: make([]T, k*k)}
}

// Shift moves every row one column to the left and appends col on the right.
func (w *Window[T]) Shift(col []T) {
	for r := 0; r < w.k; r++ {
		row := w.cells[r*w.k : (r+1)*w.k]
		copy(row, row[1:])
		row[w.k-1] = col[r]
	}
}

// At returns the cell at row r, column c; (0,0) is the oldest row and column.
func (w *Window[T]) At(r, c int) T {
	return w.cells[r*w.k+c]
}

// Center returns the middle cell.
func (w *Window[T]) Center() T {
	h := w.k / 2
	return w.At(h, h)
}

// Size returns K.
func (w *Window[T]) Size() int {
	return w.k
}

// Reset zeroes the window.
func (w *Window[T]) Reset() {
	var zero T
	for i := range w.cells {
		w.cells[i] = zero
	}
}

// Sliding couples a line buffer with its window: one Advance per input sample.
type Sliding[T any] struct {
	lines *LineBuffer[T]
	win   *Window[T]
	col   []T
}

// NewSliding allocates the history for a k×k neighbourhood over width columns.
func NewSliding[T any](k, width int) *Sliding[T] {
	return &Sliding[T]{
		lines: NewLineBuffer[T](k, width),
		win:   NewWindow[T](k),
		col:   make([]T, k),
	}
}

// Advance feeds the sample at column x and returns the updated window. The
// window stays owned by s and is overwritten by the next Advance.
func (s *Sliding[T]) Advance(x int, v T) *Window[T] {
	s.lines.Push(x, v, s.col)
	s.win.Shift(s.col)
	return s.win
}

// Window returns the current window without advancing.
func (s *Sliding[T]) Window() *Window[T] {
	return s.win
}

// Reset clears both the row history and the window.
func (s *Sliding[T]) Reset() {
	s.lines.Reset()
	s.win.Reset()
}
