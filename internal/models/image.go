package models

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"canny-stream/internal/stream"
)

// ImageData is one raster frame held as packed 0xRRGGBB pixels in row-major
// order. It is the container the edge tools use on either side of the
// streaming core; the core itself never sees a whole frame.
type ImageData struct {
	ID     string
	Source string
	Format string
	Width  int
	Height int
	Pixels []uint32
}

// NewImageData allocates a black width×height frame.
func NewImageData(width, height int) *ImageData {
	return &ImageData{
		Width:  width,
		Height: height,
		Pixels: make([]uint32, width*height),
	}
}

// NewImageDataFromImage copies img into a new frame.
func NewImageDataFromImage(img image.Image) *ImageData {
	b := img.Bounds()
	d := NewImageData(b.Dx(), b.Dy())
	for y := 0; y < d.Height; y++ {
		for x := 0; x < d.Width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			d.Pixels[y*d.Width+x] = stream.PackRGB(c.R, c.G, c.B)
		}
	}
	return d
}

// At returns the packed pixel at (x, y).
func (d *ImageData) At(x, y int) uint32 {
	return d.Pixels[y*d.Width+x]
}

// Set stores a packed pixel at (x, y).
func (d *ImageData) Set(x, y int, rgb uint32) {
	d.Pixels[y*d.Width+x] = rgb
}

// Samples returns the frame as a marked sample sequence.
func (d *ImageData) Samples() []stream.Sample {
	out := make([]stream.Sample, 0, len(d.Pixels))
	for y := 0; y < d.Height; y++ {
		for x := 0; x < d.Width; x++ {
			out = append(out, stream.Sample{
				RGB:  d.At(x, y),
				Mark: stream.MarkerAt(x, y, d.Width),
			})
		}
	}
	return out
}

// Stream sends the frame's samples on out in raster order.
func (d *ImageData) Stream(ctx context.Context, out chan<- stream.Sample) error {
	for y := 0; y < d.Height; y++ {
		for x := 0; x < d.Width; x++ {
			s := stream.Sample{RGB: d.At(x, y), Mark: stream.MarkerAt(x, y, d.Width)}
			if err := stream.Send(ctx, out, s); err != nil {
				return err
			}
		}
	}
	return nil
}

// NewImageDataFromSamples rebuilds a width×height frame from exactly
// width*height samples, checking their markers.
func NewImageDataFromSamples(width, height int, samples []stream.Sample) (*ImageData, error) {
	if len(samples) != width*height {
		return nil, fmt.Errorf("expected %d samples for a %dx%d frame, got %d",
			width*height, width, height, len(samples))
	}
	cursor := stream.NewCursor(width, height)
	d := NewImageData(width, height)
	for i, s := range samples {
		if _, err := cursor.Next(s.Mark); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		d.Pixels[i] = s.RGB & 0xFFFFFF
	}
	return d, nil
}

// Gray returns the frame's green channel as a grayscale image. Output frames
// carry the same value in every channel, so nothing is lost for them.
func (d *ImageData) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, d.Width, d.Height))
	for i, p := range d.Pixels {
		_, g, _ := stream.UnpackRGB(p)
		img.Pix[i] = g
	}
	return img
}

// RGBA returns the frame as an opaque RGBA image.
func (d *ImageData) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, d.Width, d.Height))
	for i, p := range d.Pixels {
		r, g, b := stream.UnpackRGB(p)
		img.Pix[i*4+0] = r
		img.Pix[i*4+1] = g
		img.Pix[i*4+2] = b
		img.Pix[i*4+3] = 0xFF
	}
	return img
}
