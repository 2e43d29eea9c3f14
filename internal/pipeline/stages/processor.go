package stages

import (
	"context"
	"fmt"
	"sync/atomic"

	"canny-stream/internal/stream"
)

// Kernel is a per-sample operator with private history. Step is called once
// per input sample in raster order and returns exactly one output.
type Kernel[In, Out any] interface {
	Step(pos stream.Position, v In) Out
	Reset()
}

// Processor runs a Kernel as a stream stage.
type Processor[In, Out any] struct {
	name         string
	kernel       Kernel[In, Out]
	cursor       *stream.Cursor
	clearOnFrame bool
	processed    atomic.Int64
}

// NewProcessor wraps kernel for width×height frames. When clearOnFrame is
// set the kernel's history is reset on every start-of-frame.
func NewProcessor[In, Out any](name string, kernel Kernel[In, Out], width, height int, clearOnFrame bool) *Processor[In, Out] {
	return &Processor[In, Out]{
		name:         name,
		kernel:       kernel,
		cursor:       stream.NewCursor(width, height),
		clearOnFrame: clearOnFrame,
	}
}

// Name identifies the stage in logs and metrics.
func (p *Processor[In, Out]) Name() string {
	return p.name
}

// Processed returns the number of samples emitted so far.
func (p *Processor[In, Out]) Processed() int64 {
	return p.processed.Load()
}

// Run steps the kernel over in until it is closed, then closes out. The
// upstream stage owns any error that made it stop early.
func (p *Processor[In, Out]) Run(ctx context.Context, in <-chan stream.Beat[In], out chan<- stream.Beat[Out]) error {
	defer close(out)
	p.cursor.Reset()

	for {
		b, ok, err := stream.Receive(ctx, in)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		pos, err := p.cursor.Next(b.Mark)
		if err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
		if p.clearOnFrame && b.Mark.Has(stream.StartOfFrame) {
			p.kernel.Reset()
		}

		v := p.kernel.Step(pos, b.Value)
		if err := stream.Send(ctx, out, stream.Beat[Out]{Value: v, Mark: b.Mark}); err != nil {
			return err
		}
		p.processed.Add(1)
	}
}
