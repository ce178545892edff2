package disparity

import (
	"fmt"
	"math"
)

// ErrorType selects the per-pixel similarity cost.
type ErrorType int

const (
	// ErrorSAD scores a pixel pair by absolute difference.
	ErrorSAD ErrorType = iota
	// ErrorSSD scores a pixel pair by squared difference.
	ErrorSSD
)

// String returns the name of the error type.
func (e ErrorType) String() string {
	switch e {
	case ErrorSAD:
		return "sad"
	case ErrorSSD:
		return "ssd"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(e))
	}
}

// RegionType selects how window sums are combined into the final cost.
type RegionType int

const (
	// RegionFive samples four corner windows around a center window and keeps
	// the two best corners. The effective support is (4*RadiusX+1) by
	// (4*RadiusY+1).
	RegionFive RegionType = iota
	// RegionRect uses the (2*RadiusX+1) by (2*RadiusY+1) window as is.
	RegionRect
)

// String returns the name of the region type.
func (r RegionType) String() string {
	switch r {
	case RegionFive:
		return "five"
	case RegionRect:
		return "rect"
	default:
		return fmt.Sprintf("RegionType(%d)", int(r))
	}
}

// SelectMode selects how the winning disparity is reported.
type SelectMode int

const (
	// SelectInteger reports the integer argmin.
	SelectInteger SelectMode = iota
	// SelectSubpixel refines the argmin with a parabola through its neighbors.
	SelectSubpixel
)

// String returns the name of the selection mode.
func (s SelectMode) String() string {
	switch s {
	case SelectInteger:
		return "integer"
	case SelectSubpixel:
		return "subpixel"
	default:
		return fmt.Sprintf("SelectMode(%d)", int(s))
	}
}

// SelectConfig configures disparity selection and match rejection.
// The thresholds are tunables without a universally correct value; the zero
// value of each gate other than MaxError and RightToLeftTolerance disables it.
type SelectConfig struct {
	Mode SelectMode `json:"mode"`

	// MaxError rejects matches whose best cost exceeds it. Negative disables.
	MaxError float64 `json:"maxError"`

	// TextureThreshold rejects matches where (second-best - best) <= T*best.
	// The best match's direct neighbors are not considered second-best when
	// three or more hypotheses exist. Zero disables.
	TextureThreshold float64 `json:"textureThreshold"`

	// MinVariation rejects matches where the spread between the worst and the
	// best cost is below this noise floor. Zero disables.
	MinVariation float64 `json:"minVariation"`

	// RightToLeftTolerance rejects matches whose right window, matched back
	// against the left image, lands more than this many disparities away.
	// Negative disables.
	RightToLeftTolerance int `json:"rightToLeftTolerance"`

	// RecordCost stores the best cost of every valid cell in Map.Cost.
	RecordCost bool `json:"recordCost"`
}

// Config configures an Engine.
type Config struct {
	// MinDisparity and MaxDisparity bound the hypotheses [Min, Max).
	MinDisparity int `json:"minDisparity"`
	MaxDisparity int `json:"maxDisparity"`

	// RadiusX and RadiusY are the half extents of the matching window.
	RadiusX int `json:"radiusX"`
	RadiusY int `json:"radiusY"`

	Error    ErrorType      `json:"error"`
	Region   RegionType     `json:"region"`
	Select   SelectConfig   `json:"select"`
	Parallel ParallelConfig `json:"parallel"`
}

// DefaultConfig returns a five-region SAD configuration with subpixel output
// and every rejection gate except texture disabled.
func DefaultConfig() Config {
	return Config{
		MinDisparity: 0,
		MaxDisparity: 64,
		RadiusX:      2,
		RadiusY:      2,
		Error:        ErrorSAD,
		Region:       RegionFive,
		Select: SelectConfig{
			Mode:                 SelectSubpixel,
			MaxError:             -1,
			TextureThreshold:     0.1,
			RightToLeftTolerance: -1,
		},
		Parallel: DefaultParallelConfig(),
	}
}

// Range returns the number of disparity hypotheses.
func (c Config) Range() int {
	return c.MaxDisparity - c.MinDisparity
}

// BorderX returns the horizontal radius of the effective matching support.
func (c Config) BorderX() int {
	if c.Region == RegionFive {
		return 2 * c.RadiusX
	}
	return c.RadiusX
}

// BorderY returns the vertical radius of the effective matching support.
func (c Config) BorderY() int {
	if c.Region == RegionFive {
		return 2 * c.RadiusY
	}
	return c.RadiusY
}

// Validate checks the parameters that do not depend on the images.
func (c Config) Validate() error {
	if c.MinDisparity < 0 || c.MaxDisparity <= c.MinDisparity {
		return fmt.Errorf("%w: [%d, %d)", ErrInvalidRange, c.MinDisparity, c.MaxDisparity)
	}
	if c.RadiusX <= 0 || c.RadiusY <= 0 {
		return fmt.Errorf("%w: radiusX=%d radiusY=%d", ErrInvalidRadius, c.RadiusX, c.RadiusY)
	}
	switch c.Error {
	case ErrorSAD, ErrorSSD:
	default:
		return fmt.Errorf("disparity: unknown error type %v", c.Error)
	}
	switch c.Region {
	case RegionFive, RegionRect:
	default:
		return fmt.Errorf("disparity: unknown region type %v", c.Region)
	}
	s := c.Select
	switch s.Mode {
	case SelectInteger, SelectSubpixel:
	default:
		return fmt.Errorf("%w: mode %v", ErrInvalidSelect, s.Mode)
	}
	if math.IsNaN(s.MaxError) || math.IsNaN(s.TextureThreshold) || math.IsNaN(s.MinVariation) {
		return fmt.Errorf("%w: NaN threshold", ErrInvalidSelect)
	}
	if s.TextureThreshold < 0 {
		return fmt.Errorf("%w: texture threshold %g", ErrInvalidSelect, s.TextureThreshold)
	}
	if s.MinVariation < 0 {
		return fmt.Errorf("%w: min variation %g", ErrInvalidSelect, s.MinVariation)
	}
	if c.Parallel.BandHeight < 0 {
		return fmt.Errorf("disparity: negative band height %d", c.Parallel.BandHeight)
	}
	return nil
}

// CheckShape checks that a width×height pair can be matched.
// Every hypothesis must leave at least one window inside the image, and the
// image must be tall enough to hold the effective support.
func (c Config) CheckShape(width, height int) error {
	regionWidth := 2*c.BorderX() + 1
	regionHeight := 2*c.BorderY() + 1
	if width < regionWidth || height < regionHeight {
		return fmt.Errorf("%w: %dx%d image, %dx%d support", ErrImageTooSmall, width, height, regionWidth, regionHeight)
	}
	if c.MaxDisparity-1+regionWidth > width {
		return fmt.Errorf("%w: max disparity %d, support width %d, image width %d",
			ErrRangeTooWide, c.MaxDisparity, regionWidth, width)
	}
	return nil
}
