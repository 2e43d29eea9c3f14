package filters

import "canny-stream/internal/stream"

// Margin describes a frame border: rows and columns below Lead or at or past
// size-Trail lie outside the interior.
type Margin struct {
	Lead  int
	Trail int
}

// LaggedMargin returns the border of m pixels as seen by a stream whose output
// trails the window centre by one sample: m+1 on the top/left, m on the
// bottom/right. A zero margin has no border at all.
func LaggedMargin(m int) Margin {
	if m <= 0 {
		return Margin{}
	}
	return Margin{Lead: m + 1, Trail: m}
}

// Interior reports whether pos lies inside the margin of a width×height frame.
func (m Margin) Interior(pos stream.Position, width, height int) bool {
	return pos.X >= m.Lead && pos.X < width-m.Trail &&
		pos.Y >= m.Lead && pos.Y < height-m.Trail
}

// Border forces every sample outside its margin to zero and passes the rest.
type Border struct {
	margin        Margin
	width, height int
}

// NewBorder returns a border-zeroing stage for width×height frames.
func NewBorder(margin Margin, width, height int) *Border {
	return &Border{margin: margin, width: width, height: height}
}

// Step returns v inside the margin and 0 outside it.
func (b *Border) Step(pos stream.Position, v uint8) uint8 {
	if !b.margin.Interior(pos, b.width, b.height) {
		return 0
	}
	return v
}

// Reset is a no-op; the stage keeps no history.
func (b *Border) Reset() {}
