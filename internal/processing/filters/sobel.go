package filters

import (
	"math"

	"canny-stream/internal/linebuf"
	"canny-stream/internal/stream"
)

const sobelSize = 3

// Direction is a gradient direction quantised to one of four bins.
type Direction uint8

const (
	Dir0 Direction = iota
	Dir45
	Dir90
	Dir135
)

// Degrees returns the bin's angle.
func (d Direction) Degrees() int {
	switch d {
	case Dir45:
		return 45
	case Dir90:
		return 90
	case Dir135:
		return 135
	default:
		return 0
	}
}

func (d Direction) String() string {
	switch d {
	case Dir0:
		return "0°"
	case Dir45:
		return "45°"
	case Dir90:
		return "90°"
	case Dir135:
		return "135°"
	default:
		return "invalid"
	}
}

// Gradient is the output of the Sobel stage.
type Gradient struct {
	Magnitude uint8
	Direction Direction
}

var (
	sobelX = [sobelSize][sobelSize]int{
		{1, 0, -1},
		{2, 0, -2},
		{1, 0, -1},
	}
	sobelY = [sobelSize][sobelSize]int{
		{1, 2, 1},
		{0, 0, 0},
		{-1, -2, -1},
	}
)

// Bin edges for t = gy*256/gx: tan(22.5°)*256 and tan(67.5°)*256.
const (
	tanLow  = 106
	tanHigh = 618
	// slopeInfinite stands in for t when gx is zero.
	slopeInfinite = math.MaxInt32
)

// Sobel is the 3×3 gradient stage. Samples outside its halo carry a zero
// magnitude and Dir0.
type Sobel struct {
	window        *linebuf.Sliding[uint8]
	halo          Margin
	width, height int
}

// NewSobel allocates the gradient history for width×height frames.
func NewSobel(width, height int) *Sobel {
	return &Sobel{
		window: linebuf.NewSliding[uint8](sobelSize, width),
		halo:   LaggedMargin(sobelSize),
		width:  width,
		height: height,
	}
}

// Step consumes the smoothed sample at pos and returns its gradient.
func (s *Sobel) Step(pos stream.Position, v uint8) Gradient {
	w := s.window.Advance(pos.X, v)
	if !s.halo.Interior(pos, s.width, s.height) {
		return Gradient{}
	}

	gx, gy := 0, 0
	for r := 0; r < sobelSize; r++ {
		for c := 0; c < sobelSize; c++ {
			p := int(w.At(r, c))
			gx += p * sobelX[r][c]
			gy += p * sobelY[r][c]
		}
	}
	return Gradient{Magnitude: Magnitude(gx, gy), Direction: Quantize(gx, gy)}
}

// Reset clears the row history.
func (s *Sobel) Reset() {
	s.window.Reset()
}

// Magnitude returns round(sqrt(gx²+gy²)) saturated to 255.
func Magnitude(gx, gy int) uint8 {
	return clampByte(sqrtRound(gx*gx + gy*gy))
}

// Quantize bins the gradient direction. Integer division truncates toward
// zero, so the boundaries below apply to the truncated slope.
func Quantize(gx, gy int) Direction {
	t := slopeInfinite
	if gx != 0 {
		t = gy * 256 / gx
	}

	switch {
	case -tanHigh < t && t <= -tanLow:
		return Dir135
	case -tanLow < t && t <= tanLow:
		return Dir0
	case tanLow < t && t < tanHigh:
		return Dir45
	default:
		return Dir90
	}
}

// sqrtRound returns the integer nearest to sqrt(n) for n >= 0.
func sqrtRound(n int) int {
	if n <= 0 {
		return 0
	}
	// Bitwise integer square root: r = floor(sqrt(n)), rem = n - r².
	rem := uint64(n)
	r := uint64(0)
	bit := uint64(1) << 62
	for bit > rem {
		bit >>= 2
	}
	for bit != 0 {
		if rem >= r+bit {
			rem -= r + bit
			r = r>>1 + bit
		} else {
			r >>= 1
		}
		bit >>= 2
	}
	// rem > r  <=>  sqrt(n) > r + 0.5 for integer n.
	if rem > r {
		r++
	}
	return int(r)
}
