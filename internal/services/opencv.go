package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"canny-stream/internal/logger"
	"canny-stream/internal/models"
	"canny-stream/internal/opencv/conversion"
)

// OpenCVService is a FrameStore backed by gocv. With a non-zero fit size it
// resizes every loaded frame to those bounds.
type OpenCVService struct {
	logger    logger.Logger
	fitWidth  int
	fitHeight int
}

// NewOpenCVService creates an OpenCV frame store. Pass zero sizes to keep
// frames as loaded.
func NewOpenCVService(log logger.Logger, fitWidth, fitHeight int) *OpenCVService {
	return &OpenCVService{logger: logger.OrNop(log), fitWidth: fitWidth, fitHeight: fitHeight}
}

// LoadImage reads path with OpenCV.
func (cs *OpenCVService) LoadImage(ctx context.Context, path string) (*models.ImageData, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	d, err := conversion.LoadFrame(path)
	if err != nil {
		return nil, err
	}
	d.ID = uuid.NewString()

	if cs.fitWidth > 0 && cs.fitHeight > 0 {
		w, h := d.Width, d.Height
		if d, err = conversion.FitFrame(d, cs.fitWidth, cs.fitHeight); err != nil {
			return nil, fmt.Errorf("failed to fit frame: %w", err)
		}
		if w != d.Width || h != d.Height {
			cs.logger.Debug("OpenCVService", "frame resized", map[string]interface{}{
				"source": path,
				"from":   fmt.Sprintf("%dx%d", w, h),
				"to":     fmt.Sprintf("%dx%d", d.Width, d.Height),
			})
		}
	}
	return d, nil
}

// SaveImage writes d with OpenCV. The format is taken from the extension of
// path; format is ignored.
func (cs *OpenCVService) SaveImage(ctx context.Context, path string, d *models.ImageData, _ string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return conversion.SaveEdgeMap(path, d)
}
