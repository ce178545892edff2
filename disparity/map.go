package disparity

import (
	"fmt"
	"math"
)

// Map is a dense disparity map.
//
// Valid cells hold the true disparity of the pixel, MinDisparity included,
// possibly with a fractional subpixel part. Cells without a reliable match
// hold Invalid(), which equals MaxDisparity and therefore lies outside every
// value a valid cell can take.
type Map struct {
	// Pix holds the disparities in row-major order.
	Pix []float32
	// Stride is the distance in elements between vertically adjacent cells.
	Stride int
	// Width and Height match the input images.
	Width, Height int
	// MinDisparity and MaxDisparity are the searched hypothesis range.
	MinDisparity, MaxDisparity int
	// Cost optionally holds the best window cost of each valid cell and +Inf
	// elsewhere. It is nil unless SelectConfig.RecordCost is set.
	Cost []float32
}

// NewMap creates a map with every cell marked invalid.
func NewMap(width, height, minDisparity, maxDisparity int) *Map {
	m := &Map{
		Pix:          make([]float32, width*height),
		Stride:       width,
		Width:        width,
		Height:       height,
		MinDisparity: minDisparity,
		MaxDisparity: maxDisparity,
	}
	inv := m.Invalid()
	for i := range m.Pix {
		m.Pix[i] = inv
	}
	return m
}

// Invalid returns the sentinel stored in cells without a match.
func (m *Map) Invalid() float32 {
	return float32(m.MaxDisparity)
}

// Range returns the number of disparity hypotheses.
func (m *Map) Range() int {
	return m.MaxDisparity - m.MinDisparity
}

// At returns the value of cell (x, y).
func (m *Map) At(x, y int) float32 {
	return m.Pix[y*m.Stride+x]
}

// Valid reports whether cell (x, y) holds a disparity.
func (m *Map) Valid(x, y int) bool {
	return m.IsValid(m.At(x, y))
}

// IsValid reports whether v is a disparity rather than the sentinel.
func (m *Map) IsValid(v float32) bool {
	return v < m.Invalid() && !math.IsNaN(float64(v))
}

// CostAt returns the recorded best cost of cell (x, y), or +Inf when costs
// were not recorded.
func (m *Map) CostAt(x, y int) float32 {
	if m.Cost == nil {
		return float32(math.Inf(1))
	}
	return m.Cost[y*m.Stride+x]
}

// Row returns the cells of row y.
func (m *Map) Row(y int) []float32 {
	start := y * m.Stride
	return m.Pix[start : start+m.Width]
}

// Equal reports whether m and o have the same shape, range and bit-identical
// cells.
func (m *Map) Equal(o *Map) bool {
	if m.Width != o.Width || m.Height != o.Height ||
		m.MinDisparity != o.MinDisparity || m.MaxDisparity != o.MaxDisparity {
		return false
	}
	for y := 0; y < m.Height; y++ {
		a, b := m.Row(y), o.Row(y)
		for x := range a {
			if math.Float32bits(a[x]) != math.Float32bits(b[x]) {
				return false
			}
		}
	}
	return true
}

// reshape prepares m to receive the result for a width×height pair.
func (m *Map) reshape(width, height, minDisparity, maxDisparity int, withCost bool) error {
	if m.Width != width || m.Height != height {
		return fmt.Errorf("%w: map %dx%d, images %dx%d", ErrMapShape, m.Width, m.Height, width, height)
	}
	if m.Stride < width || len(m.Pix) < (height-1)*m.Stride+width {
		return fmt.Errorf("%w: stride %d, %d cells", ErrMapShape, m.Stride, len(m.Pix))
	}
	m.MinDisparity = minDisparity
	m.MaxDisparity = maxDisparity
	if withCost {
		if len(m.Cost) < len(m.Pix) {
			m.Cost = make([]float32, len(m.Pix))
		}
	} else {
		m.Cost = nil
	}
	return nil
}
