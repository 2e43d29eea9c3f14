package pipeline

import (
	"context"

	"canny-stream/internal/models"
	"canny-stream/internal/stream"
)

// StreamProcessor is the streaming contract of the edge detector.
type StreamProcessor interface {
	Run(ctx context.Context, in <-chan stream.Sample, out chan<- stream.Sample, t models.Thresholds) error
}

// FrameProcessor processes whole frames on top of a StreamProcessor.
type FrameProcessor interface {
	StreamProcessor
	ProcessFrames(ctx context.Context, frames []*models.ImageData, t models.Thresholds) ([]*models.ImageData, error)
	Metrics() RunMetrics
	Configuration() models.Configuration
}

var _ FrameProcessor = (*Pipeline)(nil)
