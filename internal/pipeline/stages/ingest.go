package stages

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"canny-stream/internal/processing/filters"
	"canny-stream/internal/stream"
)

// IngestStats counts what the ingest stage did with its input.
type IngestStats struct {
	Frames    atomic.Int64 // frames emitted
	Consumed  atomic.Int64 // samples read from the input
	Held      atomic.Int64 // columns filled by repeating the last sample of a short row
	Drained   atomic.Int64 // samples past WIDTH dropped before end-of-line
	Discarded atomic.Int64 // samples dropped while waiting for start-of-frame
}

// Ingest demarshals framed RGB samples into a luma stream of exactly
// width×height beats per frame.
type Ingest struct {
	width, height int
	stallTimeout  time.Duration
	stats         IngestStats
}

// NewIngest returns an ingest stage for width×height frames. A positive
// stallTimeout bounds the wait for each sample inside a frame.
func NewIngest(width, height int, stallTimeout time.Duration) *Ingest {
	return &Ingest{width: width, height: height, stallTimeout: stallTimeout}
}

// Stats exposes the cumulative counters.
func (g *Ingest) Stats() *IngestStats {
	return &g.stats
}

// Run converts frames until in is closed, then closes out. Samples before a
// start-of-frame are discarded; if the input ends without any frame having
// started after samples were discarded, Run reports ErrMissingStartOfFrame.
func (g *Ingest) Run(ctx context.Context, in <-chan stream.Sample, out chan<- stream.Beat[uint8]) error {
	defer close(out)

	r := newSampleReader(ctx, in, g.stallTimeout, &g.stats)
	defer r.stop()

	framed := false
	for {
		first, ok, discarded, err := r.awaitStart()
		if err != nil {
			return err
		}
		g.stats.Discarded.Add(discarded)
		if !ok {
			if !framed && discarded > 0 {
				return fmt.Errorf("%w: %d samples discarded", stream.ErrMissingStartOfFrame, discarded)
			}
			return nil
		}
		framed = true
		if err := g.frame(r, first, out); err != nil {
			return err
		}
	}
}

// frame emits one frame whose first sample has already been read.
func (g *Ingest) frame(r *sampleReader, first stream.Sample, out chan<- stream.Beat[uint8]) error {
	cur := first
	for y := 0; y < g.height; y++ {
		eol := false
		for x := 0; x < g.width; x++ {
			switch {
			case x == 0 && y == 0:
				eol = cur.Mark.Has(stream.EndOfLine)
			case eol:
				// The real row was shorter than width: hold its last sample.
				g.stats.Held.Add(1)
			default:
				s, err := r.inFrame(x, y, stream.ErrTruncatedFrame)
				if err != nil {
					return err
				}
				cur = s
				eol = cur.Mark.Has(stream.EndOfLine)
			}

			beat := stream.Beat[uint8]{
				Value: filters.Luma(cur.RGB),
				Mark:  stream.MarkerAt(x, y, g.width),
			}
			if err := stream.Send(r.ctx, out, beat); err != nil {
				return err
			}
		}

		// The real row was longer than width: drain it up to end-of-line.
		for !eol {
			s, err := r.inFrame(g.width, y, stream.ErrMissingEndOfLine)
			if err != nil {
				return err
			}
			g.stats.Drained.Add(1)
			eol = s.Mark.Has(stream.EndOfLine)
		}
	}
	g.stats.Frames.Add(1)
	return nil
}

// sampleReader receives input samples, applying the stall timeout inside frames.
type sampleReader struct {
	ctx     context.Context
	in      <-chan stream.Sample
	timeout time.Duration
	timer   *time.Timer
	stats   *IngestStats
}

func newSampleReader(ctx context.Context, in <-chan stream.Sample, timeout time.Duration, stats *IngestStats) *sampleReader {
	r := &sampleReader{ctx: ctx, in: in, timeout: timeout, stats: stats}
	if timeout > 0 {
		r.timer = time.NewTimer(timeout)
		r.timer.Stop()
	}
	return r
}

func (r *sampleReader) stop() {
	if r.timer != nil {
		r.timer.Stop()
	}
}

// awaitStart reads until a start-of-frame sample. Idle time between frames
// is not subject to the stall timeout.
func (r *sampleReader) awaitStart() (stream.Sample, bool, int64, error) {
	var discarded int64
	for {
		s, ok, err := stream.Receive(r.ctx, r.in)
		if err != nil || !ok {
			return s, false, discarded, err
		}
		r.stats.Consumed.Add(1)
		if s.Mark.Has(stream.StartOfFrame) {
			return s, true, discarded, nil
		}
		discarded++
	}
}

// inFrame reads the sample for column x of row y. closedErr is reported if
// the input ends.
func (r *sampleReader) inFrame(x, y int, closedErr error) (stream.Sample, error) {
	var (
		s  stream.Sample
		ok bool
	)
	if r.timer == nil {
		var err error
		if s, ok, err = stream.Receive(r.ctx, r.in); err != nil {
			return s, err
		}
	} else {
		r.timer.Reset(r.timeout)
		select {
		case s, ok = <-r.in:
		case <-r.timer.C:
			return s, fmt.Errorf("%w (%s) at row %d column %d", stream.ErrStalled, r.timeout, y, x)
		case <-r.ctx.Done():
			return s, r.ctx.Err()
		}
	}

	if !ok {
		return s, fmt.Errorf("%w at row %d column %d", closedErr, y, x)
	}
	r.stats.Consumed.Add(1)
	if s.Mark.Has(stream.StartOfFrame) {
		return s, fmt.Errorf("%w at row %d column %d", stream.ErrUnexpectedStartOfFrame, y, x)
	}
	return s, nil
}
