package chain

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"canny-stream/internal/processing/filters"
	"canny-stream/internal/stream"
)

func TestFrameUniformIsEdgeFree(t *testing.T) {
	const w, h = 24, 24
	for _, v := range []uint8{0, 1, 100, 200, 255} {
		c := New(NewSteps(w, h, filters.LaggedMargin(5), 80, 20))
		luma := make([]uint8, w*h)
		for i := range luma {
			luma[i] = v
		}
		out := c.Frame(luma, w, h)
		assert.Equal(t, make([]uint8, w*h), out, "value %d", v)
	}
}

func TestFrameVerticalStep(t *testing.T) {
	const w, h = 32, 32
	luma := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 16; x < w; x++ {
			luma[y*w+x] = 255
		}
	}

	out := New(NewSteps(w, h, filters.LaggedMargin(5), 80, 20)).Frame(luma, w, h)

	want := make([]uint8, w*h)
	for y := 7; y <= 27; y++ {
		for x := 19; x <= 22; x++ {
			want[y*w+x] = 255
		}
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("edge map mismatch (-want +got):\n%s", diff)
	}
}

func TestChainMatchesKernelsStepByStep(t *testing.T) {
	const w, h = 20, 18
	rng := rand.New(rand.NewSource(7))
	luma := make([]uint8, w*h)
	for i := range luma {
		luma[i] = uint8(rng.Intn(256))
	}

	c := New(NewSteps(w, h, filters.LaggedMargin(2), 60, 15))
	got := c.Frame(luma, w, h)

	s := NewSteps(w, h, filters.LaggedMargin(2), 60, 15)
	want := make([]uint8, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pos := stream.Position{X: x, Y: y}
			v := s.Gaussian.Step(pos, luma[y*w+x])
			g := s.Sobel.Step(pos, v)
			v = s.Suppressor.Step(pos, g)
			v = s.Border.Step(pos, v)
			v = s.Classifier.Step(pos, v)
			want = append(want, s.Linker.Step(pos, v))
		}
	}
	assert.Equal(t, want, got)
}

func TestResetRestoresInitialState(t *testing.T) {
	const w, h = 16, 16
	luma := make([]uint8, w*h)
	for i := range luma {
		luma[i] = 255
	}

	c := New(NewSteps(w, h, filters.LaggedMargin(0), 80, 20))
	first := c.Frame(luma, w, h)
	carried := c.Frame(luma, w, h)
	c.Reset()
	cleared := c.Frame(luma, w, h)

	assert.Equal(t, first, cleared)
	assert.NotEqual(t, first, carried)
}

func TestStepsNames(t *testing.T) {
	s := NewSteps(8, 8, filters.Margin{}, 80, 20)
	assert.Equal(t, []string{"gaussian", "sobel", "suppression", "border", "classify", "link"}, s.Names())
	assert.Equal(t, s.Gaussian, New(s).Steps().Gaussian)
}
