package dispcodec

import "errors"

// Container errors. Decoding wraps them with detail; test with errors.Is.
var (
	ErrBadMagic      = errors.New("dispcodec: not a disparity map container")
	ErrCorrupted     = errors.New("dispcodec: corrupted data")
	ErrUnsupported   = errors.New("dispcodec: unsupported container feature")
	ErrRangeTooLarge = errors.New("dispcodec: disparity range does not fit 16-bit samples")
)
