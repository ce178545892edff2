package disparity

import (
	"image"
	"image/color"
)

// Pixel is the set of sample types the matcher reads.
type Pixel interface {
	~uint8 | ~uint16 | ~int16 | ~float32
}

// Gray is a single-channel image with samples of type T.
// The pixel at (x, y) is stored at Pix[y*Stride+x].
type Gray[T Pixel] struct {
	// Pix holds the samples in row-major order.
	Pix []T
	// Stride is the distance in elements between vertically adjacent pixels.
	Stride int
	// Width and Height are the image dimensions.
	Width, Height int
}

// NewGray creates a zeroed image with the given dimensions.
func NewGray[T Pixel](width, height int) *Gray[T] {
	return &Gray[T]{
		Pix:    make([]T, width*height),
		Stride: width,
		Width:  width,
		Height: height,
	}
}

// At returns the sample at (x, y). Coordinates outside the image return zero.
func (g *Gray[T]) At(x, y int) T {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		var zero T
		return zero
	}
	return g.Pix[y*g.Stride+x]
}

// Set stores v at (x, y). Coordinates outside the image are ignored.
func (g *Gray[T]) Set(x, y int, v T) {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return
	}
	g.Pix[y*g.Stride+x] = v
}

// Row returns the samples of row y.
func (g *Gray[T]) Row(y int) []T {
	start := y * g.Stride
	return g.Pix[start : start+g.Width]
}

// Fill sets every sample to v.
func (g *Gray[T]) Fill(v T) {
	for y := 0; y < g.Height; y++ {
		row := g.Row(y)
		for x := range row {
			row[x] = v
		}
	}
}

// SameShape reports whether g and o have identical dimensions.
func (g *Gray[T]) SameShape(o *Gray[T]) bool {
	return g.Width == o.Width && g.Height == o.Height
}

// GrayFromImage converts img to 8-bit luminance.
// *image.Gray sources are copied without color conversion.
func GrayFromImage(img image.Image) *Gray[uint8] {
	b := img.Bounds()
	dst := NewGray[uint8](b.Dx(), b.Dy())

	if src, ok := img.(*image.Gray); ok {
		for y := 0; y < dst.Height; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Row(y), src.Pix[off:off+dst.Width])
		}
		return dst
	}

	for y := 0; y < dst.Height; y++ {
		row := dst.Row(y)
		for x := range row {
			c := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			row[x] = c.Y
		}
	}
	return dst
}

// Gray16FromImage converts img to 16-bit luminance.
func Gray16FromImage(img image.Image) *Gray[uint16] {
	b := img.Bounds()
	dst := NewGray[uint16](b.Dx(), b.Dy())

	if src, ok := img.(*image.Gray16); ok {
		for y := 0; y < dst.Height; y++ {
			row := dst.Row(y)
			for x := range row {
				row[x] = src.Gray16At(b.Min.X+x, b.Min.Y+y).Y
			}
		}
		return dst
	}

	for y := 0; y < dst.Height; y++ {
		row := dst.Row(y)
		for x := range row {
			c := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			row[x] = c.Y
		}
	}
	return dst
}

// Float32FromImage converts img to luminance in [0, 255].
func Float32FromImage(img image.Image) *Gray[float32] {
	g16 := Gray16FromImage(img)
	dst := NewGray[float32](g16.Width, g16.Height)
	for i, v := range g16.Pix {
		dst.Pix[i] = float32(v) / 257
	}
	return dst
}
