package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"canny-stream/internal/logger"
	"canny-stream/internal/models"
	"canny-stream/internal/pipeline"
)

var (
	// ErrFrameHeight reports an input frame whose height differs from the
	// configured bound. Width differences are absorbed by the ingest stage.
	ErrFrameHeight = errors.New("frame height does not match configured height")
	// ErrServiceClosed is returned once Shutdown has been called.
	ErrServiceClosed = errors.New("processing service is shut down")
)

// Result describes one processed frame of a batch.
type Result struct {
	RunID   string
	Source  string
	Output  string
	Frame   *models.ImageData
	Quality *pipeline.EdgeQuality
}

// Batch is the outcome of one ProcessFiles call.
type Batch struct {
	RunID    string
	Results  []Result
	Duration time.Duration
	Metrics  pipeline.RunMetrics
}

// FrameStore loads input frames and stores edge maps.
type FrameStore interface {
	LoadImage(ctx context.Context, path string) (*models.ImageData, error)
	SaveImage(ctx context.Context, path string, d *models.ImageData, format string) error
}

// ProcessingService streams batches of image files through one pipeline.
type ProcessingService struct {
	pipeline pipeline.FrameProcessor
	images   FrameStore
	logger   logger.Logger

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
	cancels  map[string]context.CancelFunc
}

// NewProcessingService creates a service around p that reads and writes
// frames through images.
func NewProcessingService(p pipeline.FrameProcessor, images FrameStore, log logger.Logger) *ProcessingService {
	return &ProcessingService{
		pipeline: p,
		images:   images,
		logger:   logger.OrNop(log),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// ProcessFiles loads every input, runs them as one multi-frame stream and
// writes each edge map to outDir as <name>_edges.<format>. An empty outDir
// skips writing.
func (ps *ProcessingService) ProcessFiles(ctx context.Context, inputs []string, outDir, format string, t models.Thresholds) (*Batch, error) {
	runID := uuid.NewString()
	ctx, err := ps.begin(ctx, runID)
	if err != nil {
		return nil, err
	}
	defer ps.end(runID)

	cfg := ps.pipeline.Configuration()
	frames := make([]*models.ImageData, 0, len(inputs))
	for _, path := range inputs {
		frame, err := ps.images.LoadImage(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if frame.Height != cfg.Height {
			return nil, fmt.Errorf("%s: %w: got %d, want %d", path, ErrFrameHeight, frame.Height, cfg.Height)
		}
		if frame.Width != cfg.Width {
			ps.logger.Warning("ProcessingService", "frame width differs from configured width", map[string]interface{}{
				"source": path,
				"width":  frame.Width,
				"want":   cfg.Width,
			})
		}
		frames = append(frames, frame)
	}

	startTime := time.Now()
	outputs, err := ps.pipeline.ProcessFrames(ctx, frames, t)
	if err != nil {
		return nil, err
	}

	batch := &Batch{RunID: runID, Results: make([]Result, 0, len(outputs))}
	for i, out := range outputs {
		out.ID = uuid.NewString()
		out.Source = frames[i].Source
		out.Format = frames[i].Format

		r := Result{RunID: runID, Source: frames[i].Source, Frame: out}
		if outDir != "" {
			r.Output = outputPath(outDir, frames[i].Source, format)
			if err := ps.images.SaveImage(ctx, r.Output, out, format); err != nil {
				return nil, fmt.Errorf("%s: %w", r.Output, err)
			}
		}
		batch.Results = append(batch.Results, r)
	}
	batch.Duration = time.Since(startTime)
	batch.Metrics = ps.pipeline.Metrics()

	ps.logger.Info("ProcessingService", "batch processed", map[string]interface{}{
		"run_id":   runID,
		"frames":   len(batch.Results),
		"duration": batch.Duration.String(),
	})
	return batch, nil
}

// CompareWithReference scores a result frame against the reference edge map
// stored at path.
func (ps *ProcessingService) CompareWithReference(ctx context.Context, result *Result, path string) error {
	ref, err := ps.images.LoadImage(ctx, path)
	if err != nil {
		return err
	}
	q, err := pipeline.CompareEdges(result.Frame, ref)
	if err != nil {
		return err
	}
	result.Quality = q

	ps.logger.Info("ProcessingService", "reference comparison", map[string]interface{}{
		"run_id":    result.RunID,
		"source":    result.Source,
		"reference": path,
		"iou":       q.IoU,
		"precision": q.Precision,
		"recall":    q.Recall,
	})
	return nil
}

// Shutdown cancels in-flight batches and waits for them to return.
func (ps *ProcessingService) Shutdown() {
	ps.mu.Lock()
	ps.closed = true
	for _, cancel := range ps.cancels {
		cancel()
	}
	ps.mu.Unlock()

	ps.inflight.Wait()
	ps.logger.Info("ProcessingService", "processing service shut down", nil)
}

func (ps *ProcessingService) begin(ctx context.Context, runID string) (context.Context, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.closed {
		return nil, ErrServiceClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	ps.cancels[runID] = cancel
	ps.inflight.Add(1)
	return ctx, nil
}

func (ps *ProcessingService) end(runID string) {
	ps.mu.Lock()
	if cancel, ok := ps.cancels[runID]; ok {
		cancel()
		delete(ps.cancels, runID)
	}
	ps.mu.Unlock()
	ps.inflight.Done()
}

func outputPath(dir, source, format string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if format == "" {
		format = "png"
	}
	return filepath.Join(dir, base+"_edges."+format)
}
