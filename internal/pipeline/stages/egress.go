package stages

import (
	"context"
	"fmt"
	"sync/atomic"

	"canny-stream/internal/processing/threshold"
	"canny-stream/internal/stream"
)

// EgressStats counts what left the pipeline.
type EgressStats struct {
	Frames     atomic.Int64
	Samples    atomic.Int64
	EdgePixels atomic.Int64
}

// Egress re-marshals the luma stream into framed gray RGB samples.
type Egress struct {
	width, height int
	cursor        *stream.Cursor
	stats         EgressStats
	onFrame       func(frame int64, edges int64)
}

// NewEgress returns an egress stage for width×height frames. onFrame, when
// not nil, is called after the last sample of each frame has been sent.
func NewEgress(width, height int, onFrame func(frame int64, edges int64)) *Egress {
	return &Egress{
		width:   width,
		height:  height,
		cursor:  stream.NewCursor(width, height),
		onFrame: onFrame,
	}
}

// Stats exposes the cumulative counters.
func (e *Egress) Stats() *EgressStats {
	return &e.stats
}

// Run forwards beats as samples until in is closed, then closes out.
func (e *Egress) Run(ctx context.Context, in <-chan stream.Beat[uint8], out chan<- stream.Sample) error {
	defer close(out)
	e.cursor.Reset()

	var edges int64
	for {
		b, ok, err := stream.Receive(ctx, in)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		pos, err := e.cursor.Next(b.Mark)
		if err != nil {
			return fmt.Errorf("egress: %w", err)
		}
		if b.Value == threshold.Strong {
			edges++
		}

		s := stream.GraySample(b.Value, stream.MarkerAt(pos.X, pos.Y, e.width))
		if err := stream.Send(ctx, out, s); err != nil {
			return err
		}
		e.stats.Samples.Add(1)

		if pos.X == e.width-1 && pos.Y == e.height-1 {
			frame := e.stats.Frames.Add(1)
			e.stats.EdgePixels.Add(edges)
			if e.onFrame != nil {
				e.onFrame(frame, edges)
			}
			edges = 0
		}
	}
}
