package conversion

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"canny-stream/internal/models"
)

// FitFrame resizes d to width×height with area interpolation. A frame that
// already fits is returned unchanged.
func FitFrame(d *models.ImageData, width, height int) (*models.ImageData, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %dx%d", width, height)
	}
	if d.Width == width && d.Height == height {
		return d, nil
	}

	src, err := ImageDataToMat(d)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(src, &dst, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationArea)

	out, err := MatToImageData(dst)
	if err != nil {
		return nil, err
	}
	out.ID, out.Source, out.Format = d.ID, d.Source, d.Format
	return out, nil
}
