// Package chain runs every per-sample kernel of the edge detector back to
// back on one goroutine. It produces the same output as the staged pipeline
// and serves as its sequential reference.
package chain

import (
	"canny-stream/internal/processing/filters"
	"canny-stream/internal/processing/threshold"
	"canny-stream/internal/stream"
)

// Steps are the kernels of a chain, in stream order.
type Steps struct {
	Gaussian   *filters.Gaussian
	Sobel      *filters.Sobel
	Suppressor *filters.Suppressor
	Border     *filters.Border
	Classifier *threshold.Classifier
	Linker     *threshold.Linker
}

// NewSteps allocates a fresh set of kernels for width×height frames.
func NewSteps(width, height int, border filters.Margin, high, low uint8) Steps {
	return Steps{
		Gaussian:   filters.NewGaussian(width),
		Sobel:      filters.NewSobel(width, height),
		Suppressor: filters.NewSuppressor(width, height),
		Border:     filters.NewBorder(border, width, height),
		Classifier: threshold.NewClassifier(high, low),
		Linker:     threshold.NewLinker(width),
	}
}

// Names lists the kernels in stream order.
func (s Steps) Names() []string {
	return []string{"gaussian", "sobel", "suppression", "border", "classify", "link"}
}

// Reset clears the history of every kernel.
func (s Steps) Reset() {
	s.Gaussian.Reset()
	s.Sobel.Reset()
	s.Suppressor.Reset()
	s.Border.Reset()
	s.Classifier.Reset()
	s.Linker.Reset()
}

// Chain feeds one luma sample through every kernel per Step.
type Chain struct {
	steps Steps
}

// New wraps steps into a chain. The chain owns the kernels from then on.
func New(steps Steps) *Chain {
	return &Chain{steps: steps}
}

// Step returns the linked edge value for the luma sample at pos.
func (c *Chain) Step(pos stream.Position, luma uint8) uint8 {
	s := c.steps
	v := s.Gaussian.Step(pos, luma)
	g := s.Sobel.Step(pos, v)
	v = s.Suppressor.Step(pos, g)
	v = s.Border.Step(pos, v)
	v = s.Classifier.Step(pos, v)
	return s.Linker.Step(pos, v)
}

// Reset clears the history of every kernel.
func (c *Chain) Reset() {
	c.steps.Reset()
}

// Steps exposes the kernels, e.g. to update thresholds between runs.
func (c *Chain) Steps() Steps {
	return c.steps
}

// Frame runs a whole luma frame through the chain and returns the output in
// raster order. It is a convenience for tests and tools; the streaming path
// never materialises a frame.
func (c *Chain) Frame(luma []uint8, width, height int) []uint8 {
	out := make([]uint8, len(luma))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			out[i] = c.Step(stream.Position{X: x, Y: y}, luma[i])
		}
	}
	return out
}
