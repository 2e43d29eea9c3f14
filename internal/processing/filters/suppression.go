package filters

import (
	"canny-stream/internal/linebuf"
	"canny-stream/internal/stream"
)

const suppressionSize = 3

// Suppressor keeps a gradient magnitude only where it is a local maximum
// along its quantised direction.
type Suppressor struct {
	window        *linebuf.Sliding[Gradient]
	halo          Margin
	width, height int
}

// NewSuppressor allocates the suppression history for width×height frames.
func NewSuppressor(width, height int) *Suppressor {
	return &Suppressor{
		window: linebuf.NewSliding[Gradient](suppressionSize, width),
		halo:   LaggedMargin(suppressionSize),
		width:  width,
		height: height,
	}
}

// Step consumes the gradient at pos and returns the suppressed magnitude.
func (s *Suppressor) Step(pos stream.Position, g Gradient) uint8 {
	w := s.window.Advance(pos.X, g)
	if !s.halo.Interior(pos, s.width, s.height) {
		return 0
	}
	return Suppress(w)
}

// Reset clears the row history.
func (s *Suppressor) Reset() {
	s.window.Reset()
}

// Suppress applies the local-maximum test to the centre of a 3×3 window.
// Ties keep the centre.
func Suppress(w *linebuf.Window[Gradient]) uint8 {
	center := w.Center()
	a, b := neighbors(w, center.Direction)
	if center.Magnitude < a.Magnitude || center.Magnitude < b.Magnitude {
		return 0
	}
	return center.Magnitude
}

// neighbors selects the two samples across the edge for direction d.
func neighbors(w *linebuf.Window[Gradient], d Direction) (Gradient, Gradient) {
	switch d {
	case Dir45:
		return w.At(0, 0), w.At(2, 2) // upper-left, lower-right
	case Dir90:
		return w.At(0, 1), w.At(2, 1) // up, down
	case Dir135:
		return w.At(2, 0), w.At(0, 2) // lower-left, upper-right
	default:
		return w.At(1, 0), w.At(1, 2) // left, right
	}
}
