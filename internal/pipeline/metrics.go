package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"canny-stream/internal/models"
	"canny-stream/internal/pipeline/stages"
	"canny-stream/internal/stream"
)

// Metrics accumulates run-level counters. Sample-level counters live in the
// stages and are read on snapshot.
type Metrics struct {
	runs       atomic.Int64
	failedRuns atomic.Int64

	mu        sync.Mutex
	lastRun   time.Duration
	totalRun  time.Duration
	lastError string
}

func newMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) recordRun(d time.Duration, err error) {
	m.runs.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRun = d
	m.totalRun += d
	m.lastError = ""
	if err != nil {
		m.failedRuns.Add(1)
		m.lastError = err.Error()
	}
}

// RunMetrics is a point-in-time copy of the pipeline counters.
type RunMetrics struct {
	Runs       int64
	FailedRuns int64
	LastError  string

	LastRunDuration  time.Duration
	TotalRunDuration time.Duration

	FramesIn         int64
	FramesOut        int64
	SamplesConsumed  int64
	SamplesHeld      int64
	SamplesDrained   int64
	SamplesDiscarded int64
	SamplesOut       int64
	EdgePixels       int64

	// StageSamples maps each running kernel stage to the samples it emitted.
	StageSamples map[string]int64
}

func (m *Metrics) snapshot(in *stages.IngestStats, out *stages.EgressStats, kernels []stageRunner) RunMetrics {
	r := RunMetrics{
		Runs:             m.runs.Load(),
		FailedRuns:       m.failedRuns.Load(),
		FramesIn:         in.Frames.Load(),
		FramesOut:        out.Frames.Load(),
		SamplesConsumed:  in.Consumed.Load(),
		SamplesHeld:      in.Held.Load(),
		SamplesDrained:   in.Drained.Load(),
		SamplesDiscarded: in.Discarded.Load(),
		SamplesOut:       out.Samples.Load(),
		EdgePixels:       out.EdgePixels.Load(),
		StageSamples:     make(map[string]int64, len(kernels)),
	}
	for _, k := range kernels {
		r.StageSamples[k.Name()] = k.Processed()
	}

	m.mu.Lock()
	r.LastRunDuration = m.lastRun
	r.TotalRunDuration = m.totalRun
	r.LastError = m.lastError
	m.mu.Unlock()
	return r
}

// EdgeQuality compares an edge map with a reference edge map. Pixels above
// 127 in either frame count as edges.
type EdgeQuality struct {
	IoU                    float64 // Intersection over Union
	DiceCoefficient        float64
	Precision              float64
	Recall                 float64
	MisclassificationError float64
	EdgeDensity            float64 // fraction of result pixels that are edges
}

// CompareEdges scores result against reference. Both frames must have the
// same size.
func CompareEdges(result, reference *models.ImageData) (*EdgeQuality, error) {
	if result == nil || reference == nil {
		return nil, fmt.Errorf("result and reference images cannot be nil")
	}
	if result.Width != reference.Width || result.Height != reference.Height {
		return nil, fmt.Errorf("image dimensions must match: result %dx%d, reference %dx%d",
			result.Width, result.Height, reference.Width, reference.Height)
	}

	var tp, fp, fn, tn int
	for i, p := range result.Pixels {
		_, got, _ := stream.UnpackRGB(p)
		_, want, _ := stream.UnpackRGB(reference.Pixels[i])
		switch isEdge, wantEdge := got > 127, want > 127; {
		case isEdge && wantEdge:
			tp++
		case isEdge:
			fp++
		case wantEdge:
			fn++
		default:
			tn++
		}
	}

	q := &EdgeQuality{IoU: 1, DiceCoefficient: 1, Precision: 1, Recall: 1}
	if union := tp + fp + fn; union > 0 {
		q.IoU = float64(tp) / float64(union)
		q.DiceCoefficient = 2 * float64(tp) / float64(2*tp+fp+fn)
	}
	if tp+fp > 0 {
		q.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		q.Recall = float64(tp) / float64(tp+fn)
	}
	if total := tp + fp + fn + tn; total > 0 {
		q.MisclassificationError = float64(fp+fn) / float64(total)
		q.EdgeDensity = float64(tp+fp) / float64(total)
	}
	return q, nil
}
