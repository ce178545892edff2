package dispcodec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/mrjoshuak/go-jpeg2000"
)

// htBlockSize is the HTJ2K code-block edge length.
const htBlockSize = 64

// j2kCompress encodes width×height samples as a lossless single-component
// JPEG 2000 codestream.
func j2kCompress(samples []uint16, width, height int) ([]byte, error) {
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := samples[y*width : (y+1)*width]
		for x, v := range row {
			img.SetGray16(x, y, color.Gray16{Y: v})
		}
	}

	opts := &jpeg2000.Options{
		Format:         jpeg2000.FormatJ2K, // raw codestream, no JP2 wrapper
		Lossless:       true,
		HighThroughput: true,
		HTBlockWidth:   htBlockSize,
		HTBlockHeight:  htBlockSize,
		NumResolutions: resolutions(width, height),
	}

	var buf bytes.Buffer
	if err := jpeg2000.Encode(&buf, img, opts); err != nil {
		return nil, fmt.Errorf("dispcodec: jpeg2000 encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// resolutions returns the number of resolution levels for an image: up to 5
// decomposition levels plus the base, fewer for small images.
func resolutions(width, height int) int {
	levels := 0
	for s := min(width, height); s > 1 && levels < 5; s /= 2 {
		levels++
	}
	return levels + 1
}

// j2kDecompress decodes a codestream of width×height samples.
func j2kDecompress(src []byte, width, height int) ([]uint16, error) {
	img, err := jpeg2000.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: jpeg2000 decode failed: %v", ErrCorrupted, err)
	}

	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return nil, fmt.Errorf("%w: codestream is %dx%d, header says %dx%d",
			ErrCorrupted, b.Dx(), b.Dy(), width, height)
	}

	dst := make([]uint16, width*height)

	if g, ok := img.(*image.Gray16); ok {
		for y := 0; y < height; y++ {
			row := dst[y*width : (y+1)*width]
			for x := range row {
				row[x] = g.Gray16At(b.Min.X+x, b.Min.Y+y).Y
			}
		}
		return dst, nil
	}

	// Generic fallback using color.Model
	for y := 0; y < height; y++ {
		row := dst[y*width : (y+1)*width]
		for x := range row {
			row[x] = color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16).Y
		}
	}
	return dst, nil
}
