// Package conversion moves frames between gocv matrices and ImageData.
package conversion

import (
	"fmt"
	"path/filepath"

	"gocv.io/x/gocv"

	"canny-stream/internal/models"
	"canny-stream/internal/stream"
)

// MatToImageData copies an 8-bit gray, BGR or BGRA Mat into a new frame.
func MatToImageData(src gocv.Mat) (*models.ImageData, error) {
	if src.Empty() {
		return nil, fmt.Errorf("source Mat is empty")
	}

	rows, cols := src.Rows(), src.Cols()
	d := models.NewImageData(cols, rows)

	switch channels := src.Channels(); channels {
	case 1:
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				v := src.GetUCharAt(y, x)
				d.Set(x, y, stream.PackRGB(v, v, v))
			}
		}
	case 3, 4:
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				b := src.GetUCharAt3(y, x, 0)
				g := src.GetUCharAt3(y, x, 1)
				r := src.GetUCharAt3(y, x, 2)
				d.Set(x, y, stream.PackRGB(r, g, b))
			}
		}
	default:
		return nil, fmt.Errorf("unsupported channel count: %d", channels)
	}
	return d, nil
}

// ImageDataToMat copies d into a new BGR Mat. The caller closes it.
func ImageDataToMat(d *models.ImageData) (gocv.Mat, error) {
	if d == nil || d.Width <= 0 || d.Height <= 0 {
		return gocv.NewMat(), fmt.Errorf("invalid image data")
	}

	mat := gocv.NewMatWithSize(d.Height, d.Width, gocv.MatTypeCV8UC3)
	for y := 0; y < d.Height; y++ {
		for x := 0; x < d.Width; x++ {
			r, g, b := stream.UnpackRGB(d.At(x, y))
			mat.SetUCharAt3(y, x, 0, b)
			mat.SetUCharAt3(y, x, 1, g)
			mat.SetUCharAt3(y, x, 2, r)
		}
	}
	return mat, nil
}

// GrayToMat copies the green channel of d into a new single-channel Mat.
// Edge maps carry the same value in every channel.
func GrayToMat(d *models.ImageData) (gocv.Mat, error) {
	if d == nil || d.Width <= 0 || d.Height <= 0 {
		return gocv.NewMat(), fmt.Errorf("invalid image data")
	}

	mat := gocv.NewMatWithSize(d.Height, d.Width, gocv.MatTypeCV8UC1)
	for y := 0; y < d.Height; y++ {
		for x := 0; x < d.Width; x++ {
			_, g, _ := stream.UnpackRGB(d.At(x, y))
			mat.SetUCharAt(y, x, g)
		}
	}
	return mat, nil
}

// LoadFrame reads the image at path with OpenCV.
func LoadFrame(path string) (*models.ImageData, error) {
	mat := gocv.IMRead(filepath.Clean(path), gocv.IMReadColor)
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("OpenCV could not read %s", path)
	}

	d, err := MatToImageData(mat)
	if err != nil {
		return nil, err
	}
	d.Source = path
	d.Format = formatOf(path)
	return d, nil
}

// SaveEdgeMap writes d as a single-channel image with OpenCV. The format
// follows the extension of path.
func SaveEdgeMap(path string, d *models.ImageData) error {
	mat, err := GrayToMat(d)
	if err != nil {
		return err
	}
	defer mat.Close()

	if !gocv.IMWrite(filepath.Clean(path), mat) {
		return fmt.Errorf("OpenCV could not write %s", path)
	}
	return nil
}

func formatOf(path string) string {
	switch filepath.Ext(path) {
	case ".jpg", ".jpeg", ".JPG", ".JPEG":
		return "jpeg"
	case ".bmp", ".BMP":
		return "bmp"
	case ".tif", ".tiff", ".TIF", ".TIFF":
		return "tiff"
	default:
		return "png"
	}
}
