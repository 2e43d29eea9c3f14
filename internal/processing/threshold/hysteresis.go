package threshold

import (
	"canny-stream/internal/linebuf"
	"canny-stream/internal/stream"
)

const linkSize = 3

// Linker promotes a weak or strong sample to Strong when any sample of its
// 3×3 neighbourhood, itself included, is Strong, and clears it otherwise.
// This is a single hop: weak samples two steps from a strong one are dropped.
type Linker struct {
	window *linebuf.Sliding[uint8]
}

// NewLinker allocates the linking history for rows of the given width.
func NewLinker(width int) *Linker {
	return &Linker{window: linebuf.NewSliding[uint8](linkSize, width)}
}

// Step consumes the classified sample at pos and returns the linked value.
func (l *Linker) Step(pos stream.Position, v uint8) uint8 {
	return Link(l.window.Advance(pos.X, v))
}

// Reset clears the row history.
func (l *Linker) Reset() {
	l.window.Reset()
}

// Link applies the single-hop rule to a 3×3 window.
func Link(w *linebuf.Window[uint8]) uint8 {
	if w.Center() == NonEdge {
		return NonEdge
	}
	for r := 0; r < linkSize; r++ {
		for c := 0; c < linkSize; c++ {
			if w.At(r, c) == Strong {
				return Strong
			}
		}
	}
	return NonEdge
}
