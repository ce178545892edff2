package dispcodec

import (
	"fmt"
	"math"

	"github.com/mrjoshuak/go-stereo/disparity"
)

const (
	// InvalidSample marks a cell without a disparity.
	InvalidSample = 0xFFFF

	// maxScale is the finest quantization step, 1/64 of a disparity unit.
	maxScale = 64
)

// ChooseScale returns the quantization scale for m: 1 when every valid cell
// holds an integer, otherwise the largest power of two up to 64 that keeps
// every sample below InvalidSample.
func ChooseScale(m *disparity.Map) (int, error) {
	r := m.Range()
	if r <= 0 || r >= InvalidSample {
		return 0, fmt.Errorf("%w: range %d", ErrRangeTooLarge, r)
	}
	if integral(m) {
		return 1, nil
	}
	scale := maxScale
	for scale > 1 && r*scale >= InvalidSample {
		scale /= 2
	}
	return scale, nil
}

func integral(m *disparity.Map) bool {
	for y := 0; y < m.Height; y++ {
		for _, v := range m.Row(y) {
			if m.IsValid(v) && v != float32(math.Trunc(float64(v))) {
				return false
			}
		}
	}
	return true
}

// quantize converts m to fixed-point samples, row-major without padding.
func quantize(m *disparity.Map, scale int) []uint16 {
	out := make([]uint16, m.Width*m.Height)
	top := float64(m.Range()*scale - 1)
	for y := 0; y < m.Height; y++ {
		dst := out[y*m.Width : (y+1)*m.Width]
		for x, v := range m.Row(y) {
			if !m.IsValid(v) {
				dst[x] = InvalidSample
				continue
			}
			q := math.Round((float64(v) - float64(m.MinDisparity)) * float64(scale))
			dst[x] = uint16(math.Max(0, math.Min(q, top)))
		}
	}
	return out
}

// dequantize fills m from fixed-point samples. Samples at or above
// Range*scale other than InvalidSample do not decode to a disparity.
func dequantize(m *disparity.Map, samples []uint16, scale int) error {
	inv := m.Invalid()
	step := 1 / float64(scale)
	limit := m.Range() * scale
	for y := 0; y < m.Height; y++ {
		src := samples[y*m.Width : (y+1)*m.Width]
		row := m.Row(y)
		for x, q := range src {
			if q == InvalidSample {
				row[x] = inv
				continue
			}
			if int(q) >= limit {
				return fmt.Errorf("%w: sample %d at (%d, %d) outside [0, %d)", ErrCorrupted, q, x, y, limit)
			}
			row[x] = float32(float64(m.MinDisparity) + float64(q)*step)
		}
	}
	return nil
}
