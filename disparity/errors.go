package disparity

import "errors"

// Precondition errors. They are returned before any matching work is done and
// are wrapped with the offending values, so test with errors.Is.
var (
	ErrNilImage      = errors.New("disparity: nil image")
	ErrShapeMismatch = errors.New("disparity: left and right images differ in shape")
	ErrInvalidRange  = errors.New("disparity: invalid disparity range")
	ErrInvalidRadius = errors.New("disparity: region radius must be positive")
	ErrRangeTooWide  = errors.New("disparity: disparity range too wide for image")
	ErrImageTooSmall = errors.New("disparity: image smaller than matching region")
	ErrInvalidSelect = errors.New("disparity: invalid selection parameters")
	ErrMapShape      = errors.New("disparity: output map does not match input shape")
)
