package services

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"canny-stream/internal/logger"
	"canny-stream/internal/models"
)

// ImageService loads frames from files and writes edge maps back out.
type ImageService struct {
	logger logger.Logger
}

// NewImageService creates a new image service. A nil log discards output.
func NewImageService(log logger.Logger) *ImageService {
	return &ImageService{logger: logger.OrNop(log)}
}

// LoadImage reads and decodes the image at path.
func (is *ImageService) LoadImage(ctx context.Context, path string) (*models.ImageData, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	return is.DecodeImage(ctx, bufio.NewReader(f), path)
}

// DecodeImage decodes one image from r. name is recorded as the source and
// used to settle the format.
func (is *ImageService) DecodeImage(ctx context.Context, r io.Reader, name string) (*models.ImageData, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	startTime := time.Now()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	img, detected, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	imageData := models.NewImageDataFromImage(img)
	imageData.ID = uuid.NewString()
	imageData.Source = name
	imageData.Format = is.determineFormat(strings.ToLower(filepath.Ext(name)), detected)

	is.logger.Debug("ImageService", "image decoded", map[string]interface{}{
		"source":   name,
		"format":   imageData.Format,
		"width":    imageData.Width,
		"height":   imageData.Height,
		"bytes":    len(data),
		"duration": time.Since(startTime).String(),
	})
	return imageData, nil
}

// SaveImage encodes imageData to path. An empty format is derived from the
// path's extension.
func (is *ImageService) SaveImage(ctx context.Context, path string, imageData *models.ImageData, format string) (err error) {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if imageData == nil {
		return fmt.Errorf("no image data to save")
	}
	if format == "" {
		format = is.determineFormat(strings.ToLower(filepath.Ext(path)), imageData.Format)
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if err := is.SaveImageToWriter(w, imageData, format); err != nil {
		return err
	}
	return w.Flush()
}

// SaveImageToWriter encodes imageData to writer. Edge maps are written as
// single-channel images.
func (is *ImageService) SaveImageToWriter(writer io.Writer, imageData *models.ImageData, format string) error {
	if imageData == nil {
		return fmt.Errorf("no image data to save")
	}
	if !is.ValidateImageFormat(format) {
		return fmt.Errorf("unsupported output format %q", format)
	}
	return is.saveToWriter(writer, imageData.Gray(), format)
}

func (is *ImageService) saveToWriter(writer io.Writer, img image.Image, format string) error {
	switch format {
	case "jpeg", "jpg":
		return jpeg.Encode(writer, img, &jpeg.Options{Quality: 95})
	case "bmp":
		return bmp.Encode(writer, img)
	case "tiff", "tif":
		return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return png.Encode(writer, img)
	}
}

func (is *ImageService) determineFormat(extension, detectedFormat string) string {
	switch extension {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".bmp":
		return "bmp"
	case ".tiff", ".tif":
		return "tiff"
	case ".webp":
		return "webp"
	}
	if detectedFormat != "" {
		return detectedFormat
	}
	return "png"
}

// ValidateImageFormat reports whether format can be written.
func (is *ImageService) ValidateImageFormat(format string) bool {
	for _, f := range is.GetSupportedFormats() {
		if f == format {
			return true
		}
	}
	return false
}

// GetSupportedFormats lists the writable formats. WebP is read-only.
func (is *ImageService) GetSupportedFormats() []string {
	return []string{"png", "jpeg", "jpg", "bmp", "tiff", "tif"}
}
