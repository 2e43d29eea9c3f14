package services

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canny-stream/internal/models"
	"canny-stream/internal/pipeline"
	"canny-stream/internal/stream"
)

func writeGrayPNG(t *testing.T, dir, name string, w, h int, value func(x, y int) uint8) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[y*img.Stride+x] = value(x, y)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func verticalStep(x, _ int) uint8 {
	if x >= 16 {
		return 255
	}
	return 0
}

func countEdges(d *models.ImageData) int {
	n := 0
	for _, p := range d.Pixels {
		if p != 0 {
			n++
		}
	}
	return n
}

func newService(t *testing.T, w, h int) *ProcessingService {
	t.Helper()
	cfg := models.DefaultConfiguration()
	cfg.Width, cfg.Height = w, h
	p, err := pipeline.New(cfg, nil)
	require.NoError(t, err)
	return NewProcessingService(p, NewImageService(nil), nil)
}

func TestImageServiceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := writeGrayPNG(t, dir, "in.png", 5, 3, func(x, y int) uint8 { return uint8(40*y + x) })

	is := NewImageService(nil)
	d, err := is.LoadImage(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 5, d.Width)
	assert.Equal(t, 3, d.Height)
	assert.Equal(t, "png", d.Format)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, stream.PackRGB(81, 81, 81), d.At(1, 2))

	for _, format := range []string{"png", "bmp", "tiff"} {
		out := filepath.Join(dir, "out."+format)
		require.NoError(t, is.SaveImage(context.Background(), out, d, ""))
		back, err := is.LoadImage(context.Background(), out)
		require.NoError(t, err, format)
		assert.Equal(t, d.Pixels, back.Pixels, format)
		assert.Equal(t, format, back.Format)
	}
}

func TestImageServiceRejectsUnknownFormat(t *testing.T) {
	is := NewImageService(nil)
	var buf bytes.Buffer
	err := is.SaveImageToWriter(&buf, models.NewImageData(1, 1), "webp")
	assert.Error(t, err)
	assert.False(t, is.ValidateImageFormat("gif"))
	assert.True(t, is.ValidateImageFormat("jpeg"))
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	_, err := NewImageService(nil).DecodeImage(context.Background(), bytes.NewReader([]byte("nope")), "x.png")
	assert.Error(t, err)
}

func TestProcessFiles(t *testing.T) {
	const w, h = 32, 32
	dir := t.TempDir()
	inputs := []string{
		writeGrayPNG(t, dir, "vertical.png", w, h, verticalStep),
		writeGrayPNG(t, dir, "flat.png", w, h, func(int, int) uint8 { return 90 }),
	}
	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(outDir, 0o755))

	svc := newService(t, w, h)
	batch, err := svc.ProcessFiles(context.Background(), inputs, outDir, "png", models.Thresholds{High: 80, Low: 20})
	require.NoError(t, err)

	require.Len(t, batch.Results, 2)
	assert.NotEmpty(t, batch.RunID)
	assert.Equal(t, int64(2), batch.Metrics.FramesOut)

	assert.Equal(t, filepath.Join(outDir, "vertical_edges.png"), batch.Results[0].Output)
	assert.Equal(t, 84, countEdges(batch.Results[0].Frame))
	assert.Equal(t, 0, countEdges(batch.Results[1].Frame))

	written, err := NewImageService(nil).LoadImage(context.Background(), batch.Results[0].Output)
	require.NoError(t, err)
	assert.Equal(t, batch.Results[0].Frame.Pixels, written.Pixels)

	require.NoError(t, svc.CompareWithReference(context.Background(), &batch.Results[0], batch.Results[0].Output))
	assert.Equal(t, 1.0, batch.Results[0].Quality.IoU)
}

func TestProcessFilesAdaptsWidth(t *testing.T) {
	dir := t.TempDir()
	// Rows longer than the configured width are drained.
	input := writeGrayPNG(t, dir, "wide.png", 40, 32, verticalStep)

	batch, err := newService(t, 32, 32).ProcessFiles(context.Background(), []string{input}, "", "", models.Thresholds{High: 80, Low: 20})
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)
	assert.Empty(t, batch.Results[0].Output)
	assert.Equal(t, 32, batch.Results[0].Frame.Width)
	assert.Equal(t, int64(8*32), batch.Metrics.SamplesDrained)
	assert.Equal(t, 84, countEdges(batch.Results[0].Frame))
}

func TestProcessFilesRejectsHeightMismatch(t *testing.T) {
	dir := t.TempDir()
	input := writeGrayPNG(t, dir, "short.png", 32, 20, verticalStep)

	_, err := newService(t, 32, 32).ProcessFiles(context.Background(), []string{input}, "", "", models.Thresholds{High: 80, Low: 20})
	assert.ErrorIs(t, err, ErrFrameHeight)
}

func TestShutdownRejectsNewBatches(t *testing.T) {
	svc := newService(t, 16, 16)
	svc.Shutdown()

	_, err := svc.ProcessFiles(context.Background(), nil, "", "", models.Thresholds{High: 80, Low: 20})
	assert.ErrorIs(t, err, ErrServiceClosed)
}
