package stream

import "fmt"

// Cursor tracks the position of beats inside fixed-size frames and checks
// that their markers agree with the geometry.
type Cursor struct {
	width, height int
	x, y          int
	inFrame       bool
}

// NewCursor returns a cursor for width×height frames, positioned before the
// first frame.
func NewCursor(width, height int) *Cursor {
	return &Cursor{width: width, height: height}
}

// Next consumes the markers of one beat and returns its position.
func (c *Cursor) Next(mark Marker) (Position, error) {
	if mark.Has(StartOfFrame) {
		if c.inFrame {
			return Position{}, fmt.Errorf("%w at row %d column %d", ErrUnexpectedStartOfFrame, c.y, c.x)
		}
		c.inFrame = true
		c.x, c.y = 0, 0
	} else if !c.inFrame {
		return Position{}, fmt.Errorf("%w: beat outside a frame", ErrMarkerMismatch)
	}

	pos := Position{X: c.x, Y: c.y}
	if mark.Has(EndOfLine) != (c.x == c.width-1) {
		return pos, fmt.Errorf("%w: end-of-line=%t at row %d column %d",
			ErrMarkerMismatch, mark.Has(EndOfLine), c.y, c.x)
	}

	c.x++
	if c.x == c.width {
		c.x = 0
		c.y++
		if c.y == c.height {
			c.y = 0
			c.inFrame = false
		}
	}
	return pos, nil
}

// InFrame reports whether the cursor is between a start-of-frame and the
// last sample of that frame.
func (c *Cursor) InFrame() bool {
	return c.inFrame
}

// Reset positions the cursor before the next frame.
func (c *Cursor) Reset() {
	c.x, c.y = 0, 0
	c.inFrame = false
}
