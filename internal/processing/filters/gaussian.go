package filters

import (
	"canny-stream/internal/linebuf"
	"canny-stream/internal/stream"
)

const gaussianSize = 5

// gaussianKernel is {1,4,6,4,1} ⊗ {1,4,6,4,1}; the weights sum to 256.
var gaussianKernel = [gaussianSize][gaussianSize]int{
	{1, 4, 6, 4, 1},
	{4, 16, 24, 16, 4},
	{6, 24, 36, 24, 6},
	{4, 16, 24, 16, 4},
	{1, 4, 6, 4, 1},
}

// Gaussian is the 5×5 smoothing stage.
//
// There is no halo handling: the first four rows and columns of a frame
// convolve against zero or stale history and are emitted as computed.
type Gaussian struct {
	window *linebuf.Sliding[uint8]
}

// NewGaussian allocates the smoothing history for rows of the given width.
func NewGaussian(width int) *Gaussian {
	return &Gaussian{window: linebuf.NewSliding[uint8](gaussianSize, width)}
}

// Step consumes the luma sample at pos and returns the smoothed value.
func (g *Gaussian) Step(pos stream.Position, v uint8) uint8 {
	w := g.window.Advance(pos.X, v)

	sum := 0
	for r := 0; r < gaussianSize; r++ {
		for c := 0; c < gaussianSize; c++ {
			sum += int(w.At(r, c)) * gaussianKernel[r][c]
		}
	}
	return clampByte(sum >> 8)
}

// Reset clears the row history.
func (g *Gaussian) Reset() {
	g.window.Reset()
}
