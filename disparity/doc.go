// Package disparity computes dense disparity maps from rectified stereo pairs
// using windowed local matching with incremental score accumulation.
//
// For every pixel of the left image the matcher searches the hypotheses
// [MinDisparity, MaxDisparity) along the same row of the right image and keeps
// the one whose window cost is lowest. Window costs are never recomputed from
// scratch:
//   - each image row is scored with a rolling horizontal sum
//   - rows are folded into a rolling vertical sum held in a circular buffer
//   - the five-region cost samples four corner windows around a center
//     window and keeps the best two corners, which limits foreground
//     fattening at depth discontinuities
//
// The image is split into row bands. Every band seeds its own accumulator from
// rows above and below its output range, so bands are independent units of
// work and the result is bit-identical whether they run on one goroutine or
// many.
//
// Example usage:
//
//	engine, err := disparity.NewU8(disparity.Config{
//		MinDisparity: 0,
//		MaxDisparity: 64,
//		RadiusX:      2,
//		RadiusY:      2,
//		Region:       disparity.RegionFive,
//		Select:       disparity.SelectConfig{Mode: disparity.SelectSubpixel, MaxError: -1, RightToLeftTolerance: -1},
//	})
//	if err != nil {
//		return err
//	}
//	m, err := engine.Process(left, right)
//
// Cells of the returned Map hold the true disparity, or Map.Invalid() when no
// reliable match exists.
package disparity
