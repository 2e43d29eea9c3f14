package threshold

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"canny-stream/internal/stream"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		v    uint8
		want uint8
	}{
		{0, NonEdge},
		{19, NonEdge},
		{20, Weak},
		{50, Weak},
		{80, Weak},
		{81, Strong},
		{255, Strong},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.v, 80, 20), "v=%d", tt.v)
	}
}

func TestClassifyInvertedThresholds(t *testing.T) {
	// With high < low the weak band is empty.
	assert.Equal(t, NonEdge, Classify(50, 20, 80))
	assert.Equal(t, Strong, Classify(80, 20, 80))
}

func TestClassifierThresholdUpdate(t *testing.T) {
	c := NewClassifier(80, 20)
	pos := stream.Position{}
	assert.Equal(t, Weak, c.Step(pos, 60))

	c.SetThresholds(50, 10)
	high, low := c.Thresholds()
	assert.Equal(t, uint8(50), high)
	assert.Equal(t, uint8(10), low)
	assert.Equal(t, Strong, c.Step(pos, 60))
	c.Reset()
	assert.Equal(t, Strong, c.Step(pos, 60))
}
