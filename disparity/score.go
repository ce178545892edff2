package disparity

import (
	"fmt"
	"math"
)

// Cost is the numeric type window scores are accumulated in.
// Integer costs make every rolling update exact; float costs accumulate
// rounding in the rolling sums, which is why bands always re-seed.
type Cost interface {
	~int32 | ~int64 | ~float32 | ~float64
}

// elementFunc writes the cost of each pixel pair left[i], right[i] to dst[i].
type elementFunc[T Pixel, S Cost] func(dst []S, left, right []T)

// elementKernel returns the pixel cost for the given error type.
func elementKernel[T Pixel, S Cost](e ErrorType) elementFunc[T, S] {
	if e == ErrorSSD {
		return squaredDiff[T, S]
	}
	return absDiff[T, S]
}

// absDiff computes |l - r| per element.
func absDiff[T Pixel, S Cost](dst []S, left, right []T) {
	right = right[:len(left)]
	dst = dst[:len(left)]
	for i, l := range left {
		d := S(l) - S(right[i])
		if d < 0 {
			d = -d
		}
		dst[i] = d
	}
}

// squaredDiff computes (l - r)² per element.
func squaredDiff[T Pixel, S Cost](dst []S, left, right []T) {
	right = right[:len(left)]
	dst = dst[:len(left)]
	for i, l := range left {
		d := S(l) - S(right[i])
		dst[i] = d * d
	}
}

// maxPixelDiff returns the largest |l - r| between two samples of type T, or
// 0 for float samples, which have no fixed range.
func maxPixelDiff[T Pixel]() float64 {
	if T(1)/T(2) != 0 {
		return 0
	}
	allOnes := int64(-1)
	if T(allOnes) < 0 {
		// int16 spans -32768..32767
		return math.MaxUint16
	}
	return float64(T(allOnes))
}

// maxCost returns the largest value S can hold, or 0 for float costs.
func maxCost[S Cost]() float64 {
	if S(1)/S(2) != 0 {
		return 0
	}
	wide := int64(math.MaxInt32) + 1
	if S(wide) < 0 {
		return math.MaxInt32
	}
	return math.MaxInt64
}

// checkCostRange fails when the worst window cost of cfg cannot be
// represented in S. Wrapped sums would otherwise turn large costs negative
// and win the argmin.
func checkCostRange[T Pixel, S Cost](cfg Config) error {
	limit, diff := maxCost[S](), maxPixelDiff[T]()
	if limit == 0 || diff == 0 {
		return nil
	}
	element := diff
	if cfg.Error == ErrorSSD {
		element = diff * diff
	}
	windows := 1.0
	if cfg.Region == RegionFive {
		windows = 3
	}
	worst := windows * float64(2*cfg.RadiusX+1) * float64(2*cfg.RadiusY+1) * element
	if worst > limit {
		return fmt.Errorf("%w: %s costs of a %dx%d %s region reach %.0f, above the cost type limit %.0f",
			ErrInvalidRadius, cfg.Error, 2*cfg.RadiusX+1, 2*cfg.RadiusY+1, cfg.Region, worst, limit)
	}
	return nil
}
