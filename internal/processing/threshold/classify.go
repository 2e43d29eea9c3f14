package threshold

import "canny-stream/internal/stream"

// Classification levels produced by the dual-threshold stage.
const (
	NonEdge uint8 = 0
	Weak    uint8 = 1
	Strong  uint8 = 255
)

// Classifier is the dual-threshold stage. High is expected to exceed Low but
// the ordering is not checked here.
type Classifier struct {
	high, low uint8
}

// NewClassifier returns a classifier with the given thresholds.
func NewClassifier(high, low uint8) *Classifier {
	return &Classifier{high: high, low: low}
}

// SetThresholds replaces both thresholds. It must not be called while the
// classifier is stepping.
func (c *Classifier) SetThresholds(high, low uint8) {
	c.high, c.low = high, low
}

// Thresholds returns the current high and low thresholds.
func (c *Classifier) Thresholds() (high, low uint8) {
	return c.high, c.low
}

// Step classifies v.
func (c *Classifier) Step(_ stream.Position, v uint8) uint8 {
	return Classify(v, c.high, c.low)
}

// Reset is a no-op.
func (c *Classifier) Reset() {}

// Classify maps v below low to NonEdge, above high to Strong and the rest to Weak.
func Classify(v, high, low uint8) uint8 {
	switch {
	case v < low:
		return NonEdge
	case v > high:
		return Strong
	default:
		return Weak
	}
}
