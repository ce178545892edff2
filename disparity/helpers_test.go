package disparity

import (
	"sort"
	"testing"
)

// texture returns a deterministic pseudo-random pattern in [20, 220).
func texture(seed, width, height int) [][]uint8 {
	s := seed
	out := make([][]uint8, height)
	for y := range out {
		out[y] = make([]uint8, width)
		for x := range out[y] {
			s = (s*1103515245 + 12345) & 0x7fffffff
			out[y][x] = uint8((s>>16)%200 + 20)
		}
	}
	return out
}

// randomGray returns an image filled with texture(seed).
func randomGray(seed, width, height int) *Gray[uint8] {
	img := NewGray[uint8](width, height)
	for y, row := range texture(seed, width, height) {
		copy(img.Row(y), row)
	}
	return img
}

// patchScene builds a pair on a flat background where patch appears at
// column px in the left image and at px-shift in the right image.
func patchScene(width, height, px, py, shift int, background uint8, patch [][]uint8) (left, right *Gray[uint8]) {
	left = NewGray[uint8](width, height)
	right = NewGray[uint8](width, height)
	left.Fill(background)
	right.Fill(background)
	for y, row := range patch {
		for x, v := range row {
			left.Set(px+x, py+y, v)
			right.Set(px+x-shift, py+y, v)
		}
	}
	return left, right
}

// shiftedPair returns a textured pair where every left pixel reappears shift
// columns to the left in the right image.
func shiftedPair(seed, width, height, shift int) (left, right *Gray[uint8]) {
	src := randomGray(seed, width+shift, height)
	left = NewGray[uint8](width, height)
	right = NewGray[uint8](width, height)
	for y := 0; y < height; y++ {
		copy(left.Row(y), src.Row(y)[:width])
		copy(right.Row(y), src.Row(y)[shift:])
	}
	return left, right
}

func toFloat(img *Gray[uint8]) *Gray[float32] {
	out := NewGray[float32](img.Width, img.Height)
	for i, v := range img.Pix {
		out.Pix[i] = float32(v)
	}
	return out
}

// windowCost sums the pixel cost of the (2rx+1)x(2ry+1) window centered at
// (cx, cy) in the left image against the window d columns to the left in
// the right image.
func windowCost(left, right *Gray[uint8], e ErrorType, cx, cy, rx, ry, d int) int64 {
	var sum int64
	for y := cy - ry; y <= cy+ry; y++ {
		for x := cx - rx; x <= cx+rx; x++ {
			diff := int64(left.At(x, y)) - int64(right.At(x-d, y))
			if e == ErrorSSD {
				sum += diff * diff
			} else if diff < 0 {
				sum -= diff
			} else {
				sum += diff
			}
		}
	}
	return sum
}

// referenceCost computes the final cost of pixel (x, y) at disparity d
// straight from the definition of the region type.
func referenceCost(cfg Config, left, right *Gray[uint8], x, y, d int) int64 {
	rx, ry := cfg.RadiusX, cfg.RadiusY
	center := windowCost(left, right, cfg.Error, x, y, rx, ry, d)
	if cfg.Region == RegionRect {
		return center
	}
	corners := []int64{
		windowCost(left, right, cfg.Error, x-rx, y-ry, rx, ry, d),
		windowCost(left, right, cfg.Error, x+rx, y-ry, rx, ry, d),
		windowCost(left, right, cfg.Error, x-rx, y+ry, rx, ry, d),
		windowCost(left, right, cfg.Error, x+rx, y+ry, rx, ry, d),
	}
	sort.Slice(corners, func(i, j int) bool { return corners[i] < corners[j] })
	return center + corners[0] + corners[1]
}

// assignable reports whether (x, y) lies inside the region where matches
// can be produced.
func assignable(cfg Config, width, height, x, y int) bool {
	bx, by := cfg.BorderX(), cfg.BorderY()
	return x >= bx+cfg.MaxDisparity-1 && x <= width-1-bx && y >= by && y < height-by
}

// plainConfig returns a configuration with every rejection gate disabled.
func plainConfig(minD, maxD, rx, ry int, region RegionType) Config {
	return Config{
		MinDisparity: minD,
		MaxDisparity: maxD,
		RadiusX:      rx,
		RadiusY:      ry,
		Region:       region,
		Select: SelectConfig{
			Mode:                 SelectInteger,
			MaxError:             -1,
			RightToLeftTolerance: -1,
		},
		Parallel: ParallelConfig{NumWorkers: 1, GrainSize: 1},
	}
}

func mustProcess(t testing.TB, cfg Config, left, right *Gray[uint8]) *Map {
	t.Helper()
	e, err := NewU8(cfg)
	if err != nil {
		t.Fatalf("NewU8: %v", err)
	}
	m, err := e.Process(left, right)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return m
}
