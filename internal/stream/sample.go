package stream

import "context"

// Marker is the framing metadata carried alongside every sample.
type Marker uint8

const (
	// StartOfFrame is asserted on the first sample of a frame.
	StartOfFrame Marker = 1 << iota
	// EndOfLine is asserted on the last sample of each row.
	EndOfLine
)

// Has reports whether all bits of flag are set.
func (m Marker) Has(flag Marker) bool {
	return m&flag == flag
}

// MarkerAt returns the markers a well-formed frame carries at column x of row y.
func MarkerAt(x, y, width int) Marker {
	var m Marker
	if x == 0 && y == 0 {
		m |= StartOfFrame
	}
	if x == width-1 {
		m |= EndOfLine
	}
	return m
}

// Sample is the external stream element: a packed 0xRRGGBB value plus markers.
type Sample struct {
	RGB  uint32
	Mark Marker
}

// PackRGB packs three 8-bit channels into a Sample payload.
func PackRGB(r, g, b uint8) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// UnpackRGB splits a packed payload into its channels. Bits above 23 are ignored.
func UnpackRGB(rgb uint32) (r, g, b uint8) {
	return uint8(rgb >> 16), uint8(rgb >> 8), uint8(rgb)
}

// GraySample replicates a luma value into all three channels.
func GraySample(v uint8, mark Marker) Sample {
	return Sample{RGB: PackRGB(v, v, v), Mark: mark}
}

// Beat is one element on an inter-stage channel.
type Beat[T any] struct {
	Value T
	Mark  Marker
}

// Position is a pixel coordinate inside a frame.
type Position struct {
	X, Y int
}

// Send delivers v on out unless ctx is done first.
func Send[T any](ctx context.Context, out chan<- T, v T) error {
	select {
	case out <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive waits for the next element on in. ok is false once in is closed.
func Receive[T any](ctx context.Context, in <-chan T) (v T, ok bool, err error) {
	select {
	case v, ok = <-in:
		return v, ok, nil
	case <-ctx.Done():
		return v, false, ctx.Err()
	}
}
