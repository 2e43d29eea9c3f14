// Package pipeline wires the streaming edge detector: an ingest stage, the
// per-sample kernels and an egress stage, connected by bounded channels and
// supervised as one unit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"canny-stream/internal/logger"
	"canny-stream/internal/models"
	"canny-stream/internal/pipeline/stages"
	"canny-stream/internal/processing/chain"
	"canny-stream/internal/processing/filters"
	"canny-stream/internal/stream"
)

// channelDepth bounds every inter-stage channel. A stage blocks as soon as
// its consumer falls one beat behind.
const channelDepth = 1

// Pipeline owns the kernel state of one edge detector. Runs on the same
// Pipeline are serialised; separate Pipelines are independent.
type Pipeline struct {
	mu  sync.Mutex
	cfg models.Configuration
	log logger.Logger

	steps   chain.Steps
	ingest  *stages.Ingest
	egress  *stages.Egress
	kernels kernelStages

	metrics *Metrics
}

// stageRunner is a kernel stage with its channel types erased.
type stageRunner interface {
	Name() string
	Processed() int64
}

// kernelStages holds the processors of both execution modes. Only the ones
// of the configured mode are ever started.
type kernelStages struct {
	fused    *stages.Processor[uint8, uint8]
	gaussian *stages.Processor[uint8, uint8]
	sobel    *stages.Processor[uint8, filters.Gradient]
	suppress *stages.Processor[filters.Gradient, uint8]
	border   *stages.Processor[uint8, uint8]
	classify *stages.Processor[uint8, uint8]
	link     *stages.Processor[uint8, uint8]
}

func newKernelStages(steps chain.Steps, width, height int, clearOnFrame bool) kernelStages {
	return kernelStages{
		fused:    stages.NewProcessor[uint8, uint8]("chain", chain.New(steps), width, height, clearOnFrame),
		gaussian: stages.NewProcessor[uint8, uint8]("gaussian", steps.Gaussian, width, height, clearOnFrame),
		sobel:    stages.NewProcessor[uint8, filters.Gradient]("sobel", steps.Sobel, width, height, clearOnFrame),
		suppress: stages.NewProcessor[filters.Gradient, uint8]("suppression", steps.Suppressor, width, height, clearOnFrame),
		border:   stages.NewProcessor[uint8, uint8]("border", steps.Border, width, height, clearOnFrame),
		classify: stages.NewProcessor[uint8, uint8]("classify", steps.Classifier, width, height, clearOnFrame),
		link:     stages.NewProcessor[uint8, uint8]("link", steps.Linker, width, height, clearOnFrame),
	}
}

// active lists the processors the given mode runs, in stream order.
func (k kernelStages) active(mode models.ExecutionMode) []stageRunner {
	if mode == models.ModeFused {
		return []stageRunner{k.fused}
	}
	return []stageRunner{k.gaussian, k.sobel, k.suppress, k.border, k.classify, k.link}
}

// New validates cfg and allocates the kernels. A nil log discards output.
func New(cfg *models.Configuration, log logger.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil configuration", models.ErrInvalidConfiguration)
	}
	c := *cfg
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	stall, err := c.GetStallTimeout()
	if err != nil {
		return nil, err
	}

	t := c.GetThresholds()
	p := &Pipeline{
		cfg:     c,
		log:     logger.OrNop(log),
		steps:   chain.NewSteps(c.Width, c.Height, filters.LaggedMargin(c.GetBorderMargin()), t.High, t.Low),
		ingest:  stages.NewIngest(c.Width, c.Height, stall),
		metrics: newMetrics(),
	}
	p.kernels = newKernelStages(p.steps, c.Width, c.Height, c.History == models.HistoryClear)
	p.egress = stages.NewEgress(c.Width, c.Height, p.frameDone)

	p.log.Info("Pipeline", "pipeline created", map[string]interface{}{
		"width":         c.Width,
		"height":        c.Height,
		"mode":          string(c.Mode),
		"history":       string(c.History),
		"border_margin": c.GetBorderMargin(),
		"stall_timeout": c.StallTimeout,
	})
	return p, nil
}

// Configuration returns a copy of the normalized configuration.
func (p *Pipeline) Configuration() models.Configuration {
	return p.cfg
}

// Run processes every frame arriving on in and writes the edge map to out,
// one sample per input pixel position. It returns when in is closed and all
// output has been delivered, or on the first framing fault or ctx
// cancellation. out is always closed before Run returns.
//
// The producer feeding in must stop when ctx is done, and the consumer must
// keep reading out until it is closed.
func (p *Pipeline) Run(ctx context.Context, in <-chan stream.Sample, out chan<- stream.Sample, t models.Thresholds) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !t.Ordered() {
		if p.cfg.StrictThresholds {
			close(out)
			return fmt.Errorf("%w: high=%d low=%d", models.ErrThresholdOrder, t.High, t.Low)
		}
		p.log.Warning("Pipeline", "high threshold below low threshold, weak band is empty", map[string]interface{}{
			"high": t.High,
			"low":  t.Low,
		})
	}
	p.steps.Classifier.SetThresholds(t.High, t.Low)

	start := time.Now()
	before := p.egress.Stats().Frames.Load()

	g, gctx := errgroup.WithContext(ctx)
	luma := make(chan stream.Beat[uint8], channelDepth)
	g.Go(func() error { return p.ingest.Run(gctx, in, luma) })
	edges := p.wire(g, gctx, luma)
	g.Go(func() error { return p.egress.Run(gctx, edges, out) })

	err := g.Wait()
	elapsed := time.Since(start)
	p.metrics.recordRun(elapsed, err)

	fields := map[string]interface{}{
		"frames":   p.egress.Stats().Frames.Load() - before,
		"duration": elapsed.String(),
		"high":     t.High,
		"low":      t.Low,
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			p.log.Warning("Pipeline", "run cancelled", fields)
		} else {
			p.log.Error("Pipeline", err, fields)
		}
		return err
	}
	p.log.Info("Pipeline", "run completed", fields)
	return nil
}

// wire starts the kernel stages between ingest and egress according to the
// execution mode and returns the channel egress reads from.
func (p *Pipeline) wire(g *errgroup.Group, ctx context.Context, luma <-chan stream.Beat[uint8]) <-chan stream.Beat[uint8] {
	k := p.kernels
	if p.cfg.Mode == models.ModeFused {
		return startStage(g, ctx, k.fused, luma)
	}

	smoothed := startStage(g, ctx, k.gaussian, luma)
	gradients := startStage(g, ctx, k.sobel, smoothed)
	thinned := startStage(g, ctx, k.suppress, gradients)
	framed := startStage(g, ctx, k.border, thinned)
	classes := startStage(g, ctx, k.classify, framed)
	return startStage(g, ctx, k.link, classes)
}

func startStage[In, Out any](g *errgroup.Group, ctx context.Context, s *stages.Processor[In, Out], in <-chan stream.Beat[In]) <-chan stream.Beat[Out] {
	out := make(chan stream.Beat[Out], channelDepth)
	g.Go(func() error { return s.Run(ctx, in, out) })
	return out
}

func (p *Pipeline) frameDone(frame, edges int64) {
	p.log.Debug("Pipeline", "frame completed", map[string]interface{}{
		"frame":       frame,
		"edge_pixels": edges,
	})
}

// ProcessFrames streams whole frames through Run and collects the output
// frames. Every input frame must match the configured bounds exactly for
// the output to line up one to one; see Ingest for how other sizes are
// adapted.
func (p *Pipeline) ProcessFrames(ctx context.Context, frames []*models.ImageData, t models.Thresholds) ([]*models.ImageData, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan stream.Sample, channelDepth)
	out := make(chan stream.Sample, channelDepth)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(in)
		for _, f := range frames {
			if err := f.Stream(gctx, in); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error { return p.Run(gctx, in, out, t) })

	var (
		results  []*models.ImageData
		trailing int
	)
	g.Go(func() error {
		w, h := p.cfg.Width, p.cfg.Height
		buf := make([]stream.Sample, 0, w*h)
		for s := range out {
			buf = append(buf, s)
			if len(buf) < w*h {
				continue
			}
			frame, err := models.NewImageDataFromSamples(w, h, buf)
			if err != nil {
				return err
			}
			results = append(results, frame)
			buf = buf[:0]
		}
		trailing = len(buf)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if trailing > 0 {
		return nil, fmt.Errorf("%w: %d trailing output samples", stream.ErrTruncatedFrame, trailing)
	}
	return results, nil
}

// Metrics returns a snapshot of the cumulative counters.
func (p *Pipeline) Metrics() RunMetrics {
	return p.metrics.snapshot(p.ingest.Stats(), p.egress.Stats(), p.kernels.active(p.cfg.Mode))
}
