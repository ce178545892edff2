package disparity

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestProcessMatchesReference(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		shift  int
		width  int
		height int
	}{
		{"rect sad", plainConfig(0, 6, 1, 1, RegionRect), 3, 24, 9},
		{"rect ssd", withError(plainConfig(0, 5, 2, 1, RegionRect), ErrorSSD), 2, 20, 8},
		{"rect offset range", plainConfig(2, 7, 1, 2, RegionRect), 4, 22, 11},
		{"five sad", plainConfig(0, 6, 1, 1, RegionFive), 3, 26, 12},
		{"five ssd", withError(plainConfig(0, 4, 1, 1, RegionFive), ErrorSSD), 1, 20, 10},
		{"five offset range", plainConfig(3, 8, 2, 1, RegionFive), 5, 30, 13},
		{"five tall window", plainConfig(0, 3, 1, 2, RegionFive), 1, 18, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left, right := shiftedPair(21, tt.width, tt.height, tt.shift)
			// perturb the right image so costs are not all zero at the true shift
			for i := range right.Pix {
				right.Pix[i] += uint8(i % 3)
			}
			cfg := tt.cfg
			cfg.Select.RecordCost = true
			m := mustProcess(t, cfg, left, right)

			for y := 0; y < tt.height; y++ {
				for x := 0; x < tt.width; x++ {
					if !assignable(cfg, tt.width, tt.height, x, y) {
						if m.Valid(x, y) {
							t.Errorf("(%d, %d) in border has disparity %v", x, y, m.At(x, y))
						}
						continue
					}
					bestD, bestCost := -1, int64(math.MaxInt64)
					for d := cfg.MinDisparity; d < cfg.MaxDisparity; d++ {
						if c := referenceCost(cfg, left, right, x, y, d); c < bestCost {
							bestD, bestCost = d, c
						}
					}
					if got := m.At(x, y); got != float32(bestD) {
						t.Errorf("(%d, %d): disparity = %v, want %d", x, y, got, bestD)
					}
					if got := m.CostAt(x, y); got != float32(bestCost) {
						t.Errorf("(%d, %d): cost = %v, want %d", x, y, got, bestCost)
					}
				}
			}
		})
	}
}

func withError(cfg Config, e ErrorType) Config {
	cfg.Error = e
	return cfg
}

func TestProcessZeroDisparityIdentity(t *testing.T) {
	for _, region := range []RegionType{RegionRect, RegionFive} {
		t.Run(region.String(), func(t *testing.T) {
			img := randomGray(4, 28, 14)
			cfg := plainConfig(0, 5, 2, 1, region)
			cfg.Select.RecordCost = true
			cfg.Select.Mode = SelectSubpixel
			m := mustProcess(t, cfg, img, img)

			for y := 0; y < img.Height; y++ {
				for x := 0; x < img.Width; x++ {
					if !assignable(cfg, img.Width, img.Height, x, y) {
						if m.At(x, y) != m.Invalid() {
							t.Errorf("(%d, %d) = %v, want invalid", x, y, m.At(x, y))
						}
						continue
					}
					if m.At(x, y) != 0 || m.CostAt(x, y) != 0 {
						t.Errorf("(%d, %d) = (%v, cost %v), want (0, cost 0)", x, y, m.At(x, y), m.CostAt(x, y))
					}
				}
			}
		})
	}
}

func TestProcessShiftedPatch(t *testing.T) {
	const width, height, shift = 20, 10, 3
	left, right := patchScene(width, height, 10, 1, shift, 100, texture(7, 8, 8))

	tests := []struct {
		region    RegionType
		mode      SelectMode
		tolerance float64
	}{
		{RegionRect, SelectInteger, 0},
		{RegionRect, SelectSubpixel, 0.25},
		{RegionFive, SelectInteger, 0},
		{RegionFive, SelectSubpixel, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.region.String()+"/"+tt.mode.String(), func(t *testing.T) {
			cfg := plainConfig(0, 8, 2, 2, tt.region)
			cfg.Select.Mode = tt.mode
			cfg.Select.TextureThreshold = 0.2
			m := mustProcess(t, cfg, left, right)

			var matched int
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					v := m.At(x, y)
					if !assignable(cfg, width, height, x, y) {
						if m.IsValid(v) {
							t.Errorf("(%d, %d) in border = %v", x, y, v)
						}
						continue
					}
					if !m.IsValid(v) {
						t.Errorf("(%d, %d) rejected, want %d", x, y, shift)
						continue
					}
					matched++
					if math.Abs(float64(v)-shift) > tt.tolerance {
						t.Errorf("(%d, %d) = %v, want %d", x, y, v, shift)
					}
				}
			}
			if matched == 0 {
				t.Error("no pixel matched")
			}
		})
	}
}

func TestProcessRampPatch(t *testing.T) {
	const width, height = 20, 10
	ramp := make([][]uint8, 8)
	for y := range ramp {
		ramp[y] = make([]uint8, 8)
		for x := range ramp[y] {
			ramp[y][x] = uint8(40 + 20*x)
		}
	}
	// the true shift lies outside [0, 2); the ramp still pulls every window
	// that overlaps it towards the larger hypothesis
	left, right := patchScene(width, height, 10, 1, 3, 100, ramp)

	tests := []struct {
		region         RegionType
		rows           [2]int
		ones, zeros    [2]int
		trailingZeroes bool
	}{
		{RegionRect, [2]int{2, 7}, [2]int{5, 16}, [2]int{3, 4}, true},
		{RegionFive, [2]int{4, 5}, [2]int{5, 15}, [2]int{0, -1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.region.String(), func(t *testing.T) {
			cfg := plainConfig(0, 2, 2, 2, tt.region)
			m := mustProcess(t, cfg, left, right)

			for y := tt.rows[0]; y <= tt.rows[1]; y++ {
				for x := tt.ones[0]; x <= tt.ones[1]; x++ {
					if got := m.At(x, y); got != 1 {
						t.Errorf("(%d, %d) = %v, want 1", x, y, got)
					}
				}
				for x := tt.zeros[0]; x <= tt.zeros[1]; x++ {
					if got := m.At(x, y); got != 0 {
						t.Errorf("(%d, %d) = %v, want 0", x, y, got)
					}
				}
				if tt.trailingZeroes {
					if got := m.At(tt.ones[1]+1, y); got != 0 {
						t.Errorf("(%d, %d) = %v, want 0", tt.ones[1]+1, y, got)
					}
				}
			}
		})
	}
}

func TestProcessRampPatchUniqueness(t *testing.T) {
	const width, height = 20, 10
	ramp := make([][]uint8, 8)
	for y := range ramp {
		ramp[y] = make([]uint8, 8)
		for x := range ramp[y] {
			ramp[y][x] = uint8(40 + 20*x)
		}
	}
	left, right := patchScene(width, height, 10, 1, 3, 100, ramp)

	// columns whose two hypotheses stay far enough apart; every other
	// assignable cell is flagged as ambiguous
	tests := []struct {
		region  RegionType
		texture float64
		valid   []int
	}{
		{RegionRect, 0.1, []int{5, 6, 7, 8, 9, 11, 12, 13, 14, 15}},
		{RegionRect, 0.5, []int{5, 6}},
		{RegionFive, 0.1, []int{5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}},
		{RegionFive, 0.2, []int{5, 6, 7, 8, 9, 11, 12, 13, 14}},
		{RegionFive, 0.5, []int{5, 6, 7}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s texture %v", tt.region, tt.texture), func(t *testing.T) {
			cfg := plainConfig(0, 2, 2, 2, tt.region)
			argmin := mustProcess(t, cfg, left, right)
			cfg.Select.TextureThreshold = tt.texture
			m := mustProcess(t, cfg, left, right)

			want := make(map[int]bool)
			for _, x := range tt.valid {
				want[x] = true
			}
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					if !assignable(cfg, width, height, x, y) {
						continue
					}
					got := m.At(x, y)
					if !want[x] {
						if m.IsValid(got) {
							t.Errorf("(%d, %d) = %v, want rejected", x, y, got)
						}
						continue
					}
					if got != 1 || got != argmin.At(x, y) {
						t.Errorf("(%d, %d) = %v, want 1 as without the gate", x, y, got)
					}
				}
			}
		})
	}
}

func TestProcessFlatImagesRejectedByTexture(t *testing.T) {
	left := NewGray[uint8](16, 8)
	right := NewGray[uint8](16, 8)
	left.Fill(90)
	right.Fill(90)

	cfg := plainConfig(0, 4, 1, 1, RegionFive)
	cfg.Select.TextureThreshold = 0.1
	m := mustProcess(t, cfg, left, right)
	for i, v := range m.Pix {
		if m.IsValid(v) {
			t.Fatalf("cell %d = %v, want invalid", i, v)
		}
	}
}

func TestProcessTypesAgree(t *testing.T) {
	left, right := shiftedPair(8, 40, 16, 4)
	cfg := DefaultConfig()
	cfg.MaxDisparity = 12
	cfg.Select.RecordCost = true

	want := mustProcess(t, cfg, left, right)

	ef, err := NewF32(cfg)
	if err != nil {
		t.Fatalf("NewF32: %v", err)
	}
	gotF, err := ef.Process(toFloat(left), toFloat(right))
	if err != nil {
		t.Fatalf("Process float: %v", err)
	}
	if !gotF.Equal(want) {
		t.Error("float32 engine differs from uint8 engine on integer data")
	}

	e16, err := NewU16(cfg)
	if err != nil {
		t.Fatalf("NewU16: %v", err)
	}
	l16 := NewGray[uint16](left.Width, left.Height)
	r16 := NewGray[uint16](left.Width, left.Height)
	for i := range left.Pix {
		l16.Pix[i] = uint16(left.Pix[i])
		r16.Pix[i] = uint16(right.Pix[i])
	}
	got16, err := e16.Process(l16, r16)
	if err != nil {
		t.Fatalf("Process uint16: %v", err)
	}
	if !got16.Equal(want) {
		t.Error("uint16 engine differs from uint8 engine")
	}
}

func TestProcessDeterministicAcrossWorkers(t *testing.T) {
	left, right := shiftedPair(13, 64, 47, 6)

	for _, region := range []RegionType{RegionRect, RegionFive} {
		t.Run(region.String(), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Region = region
			cfg.MaxDisparity = 16
			cfg.Select.RightToLeftTolerance = 1
			cfg.Select.RecordCost = true
			cfg.Parallel = ParallelConfig{NumWorkers: 1, GrainSize: 1, BandHeight: 4}

			seq := mustProcess(t, cfg, left, right)
			seqF := processF32(t, cfg, toFloat(left), toFloat(right))

			for _, workers := range []int{2, 3, 8} {
				cfg.Parallel.NumWorkers = workers
				if par := mustProcess(t, cfg, left, right); !par.Equal(seq) {
					t.Errorf("uint8 with %d workers differs from sequential", workers)
				}
				if par := processF32(t, cfg, toFloat(left), toFloat(right)); !par.Equal(seqF) {
					t.Errorf("float32 with %d workers differs from sequential", workers)
				}
			}
		})
	}
}

func TestProcessBandHeightDoesNotChangeIntegerResult(t *testing.T) {
	left, right := shiftedPair(17, 48, 33, 5)
	cfg := DefaultConfig()
	cfg.MaxDisparity = 10
	cfg.Parallel.NumWorkers = 1

	var first *Map
	for _, bandHeight := range []int{0, 1, 3, 7, 33, 100} {
		cfg.Parallel.BandHeight = bandHeight
		m := mustProcess(t, cfg, left, right)
		if first == nil {
			first = m
			continue
		}
		if !m.Equal(first) {
			t.Errorf("band height %d changes the result", bandHeight)
		}
	}
}

func processF32(t *testing.T, cfg Config, left, right *Gray[float32]) *Map {
	t.Helper()
	e, err := NewF32(cfg)
	if err != nil {
		t.Fatalf("NewF32: %v", err)
	}
	m, err := e.Process(left, right)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return m
}

func TestProcessPreconditions(t *testing.T) {
	good := randomGray(1, 20, 10)

	tests := []struct {
		name        string
		cfg         func(c *Config)
		left, right *Gray[uint8]
		want        error
	}{
		{"nil left", nil, nil, good, ErrNilImage},
		{"nil right", nil, good, nil, ErrNilImage},
		{"shape mismatch", nil, good, randomGray(1, 20, 11), ErrShapeMismatch},
		{"short buffer", nil, good, &Gray[uint8]{Pix: make([]uint8, 10), Stride: 20, Width: 20, Height: 10}, ErrShapeMismatch},
		{"range too wide", func(c *Config) { c.MaxDisparity = 18 }, good, good, ErrRangeTooWide},
		{"too narrow for five", func(c *Config) { c.RadiusX = 5 }, good, good, ErrImageTooSmall},
		{"too short", func(c *Config) { c.RadiusY = 3 }, good, good, ErrImageTooSmall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := plainConfig(0, 4, 1, 1, RegionFive)
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			e, err := NewU8(cfg)
			if err != nil {
				t.Fatalf("NewU8: %v", err)
			}
			m, err := e.Process(tt.left, tt.right)
			if !errors.Is(err, tt.want) {
				t.Errorf("Process error = %v, want %v", err, tt.want)
			}
			if m != nil {
				t.Error("Process returned a map with an error")
			}
		})
	}
}

func TestProcessIntoReusesMap(t *testing.T) {
	left, right := shiftedPair(2, 30, 12, 2)
	cfg := plainConfig(0, 6, 1, 1, RegionFive)
	e, err := NewU8(cfg)
	if err != nil {
		t.Fatalf("NewU8: %v", err)
	}
	want, err := e.Process(left, right)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	dst := NewMap(30, 12, 0, 1)
	for i := range dst.Pix {
		dst.Pix[i] = -7
	}
	if err := e.ProcessInto(dst, left, right); err != nil {
		t.Fatalf("ProcessInto: %v", err)
	}
	if !dst.Equal(want) {
		t.Error("ProcessInto result differs from Process")
	}
	if dst.MaxDisparity != cfg.MaxDisparity {
		t.Errorf("MaxDisparity = %d, want %d", dst.MaxDisparity, cfg.MaxDisparity)
	}

	if err := e.ProcessInto(NewMap(29, 12, 0, 6), left, right); !errors.Is(err, ErrMapShape) {
		t.Errorf("ProcessInto wrong shape error = %v, want ErrMapShape", err)
	}
	if err := e.ProcessInto(nil, left, right); !errors.Is(err, ErrMapShape) {
		t.Errorf("ProcessInto nil map error = %v, want ErrMapShape", err)
	}
}

func TestProcessIntoStridedMap(t *testing.T) {
	left, right := shiftedPair(9, 24, 10, 3)
	cfg := plainConfig(0, 5, 1, 1, RegionRect)
	cfg.Select.RecordCost = true
	e, err := NewU8(cfg)
	if err != nil {
		t.Fatalf("NewU8: %v", err)
	}
	want, err := e.Process(left, right)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	dst := &Map{Pix: make([]float32, 32*10), Stride: 32, Width: 24, Height: 10}
	if err := e.ProcessInto(dst, left, right); err != nil {
		t.Fatalf("ProcessInto: %v", err)
	}
	if !dst.Equal(want) {
		t.Error("strided ProcessInto differs from Process")
	}
	for y := 0; y < 10; y++ {
		for x := 0; x < 24; x++ {
			if a, b := dst.CostAt(x, y), want.CostAt(x, y); a != b {
				t.Errorf("cost (%d, %d) = %v, want %v", x, y, a, b)
			}
		}
	}
}

func TestEnginePoolReuse(t *testing.T) {
	left, right := shiftedPair(3, 32, 16, 2)
	cfg := plainConfig(0, 6, 1, 1, RegionFive)
	e, err := NewU8(cfg)
	if err != nil {
		t.Fatalf("NewU8: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := e.Process(left, right); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	allocs, hits, misses := e.PoolStats()
	if allocs != 5 {
		t.Errorf("allocs = %d, want 5", allocs)
	}
	if hits+misses != allocs {
		t.Errorf("hits %d + misses %d != allocs %d", hits, misses, allocs)
	}

	e.ResetPoolStats()
	if a, h, m := e.PoolStats(); a != 0 || h != 0 || m != 0 {
		t.Errorf("after reset stats = (%d, %d, %d), want zeros", a, h, m)
	}
}

func TestEngineConcurrentProcess(t *testing.T) {
	left, right := shiftedPair(5, 40, 20, 3)
	cfg := DefaultConfig()
	cfg.MaxDisparity = 8
	cfg.Parallel = ParallelConfig{NumWorkers: 2, GrainSize: 1, BandHeight: 3}
	e, err := NewU8(cfg)
	if err != nil {
		t.Fatalf("NewU8: %v", err)
	}
	want, err := e.Process(left, right)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	results := make(chan *Map, 4)
	for i := 0; i < 4; i++ {
		go func() {
			m, err := e.Process(left, right)
			if err != nil {
				t.Errorf("Process: %v", err)
			}
			results <- m
		}()
	}
	for i := 0; i < 4; i++ {
		if m := <-results; m != nil && !m.Equal(want) {
			t.Error("concurrent Process result differs")
		}
	}
}

func TestNewRejectsOverflowingCosts(t *testing.T) {
	tests := []struct {
		name   string
		errT   ErrorType
		region RegionType
		radius int
		newFn  func(Config) error
		want   error
	}{
		{"u8 ssd five at limit", ErrorSSD, RegionFive, 51, newU8, nil},
		{"u8 ssd five overflows", ErrorSSD, RegionFive, 55, newU8, ErrInvalidRadius},
		{"u8 ssd rect", ErrorSSD, RegionRect, 55, newU8, nil},
		{"u8 sad five", ErrorSAD, RegionFive, 400, newU8, nil},
		{"u8 int64 ssd five", ErrorSSD, RegionFive, 55, func(c Config) error { _, err := New[uint8, int64](c); return err }, nil},
		{"u16 int32 ssd", ErrorSSD, RegionRect, 1, func(c Config) error { _, err := New[uint16, int32](c); return err }, ErrInvalidRadius},
		{"u16 int32 sad", ErrorSAD, RegionFive, 2, func(c Config) error { _, err := New[uint16, int32](c); return err }, nil},
		{"i16 int32 ssd", ErrorSSD, RegionRect, 1, func(c Config) error { _, err := New[int16, int32](c); return err }, ErrInvalidRadius},
		{"u16 int64 ssd five", ErrorSSD, RegionFive, 55, func(c Config) error { _, err := NewU16(c); return err }, nil},
		{"f32 ssd five", ErrorSSD, RegionFive, 500, func(c Config) error { _, err := NewF32(c); return err }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := plainConfig(0, 2, tt.radius, tt.radius, tt.region)
			cfg.Error = tt.errT
			err := tt.newFn(cfg)
			if tt.want == nil {
				if err != nil {
					t.Errorf("New = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("New = %v, want %v", err, tt.want)
			}
		})
	}
}

func newU8(c Config) error {
	_, err := NewU8(c)
	return err
}

func TestProcessLargeRadiusCostStaysExact(t *testing.T) {
	const width, height, radius = 240, 230, 50
	left := NewGray[uint8](width, height)
	right := NewGray[uint8](width, height)
	left.Fill(255)

	cfg := plainConfig(0, 2, radius, radius, RegionFive)
	cfg.Error = ErrorSSD
	cfg.Select.RecordCost = true
	m := mustProcess(t, cfg, left, right)

	// three 101x101 windows of 255² each
	want := float32(3 * 101 * 101 * 255 * 255)
	for _, p := range [][2]int{{101, 100}, {120, 115}, {139, 129}} {
		x, y := p[0], p[1]
		if got := m.At(x, y); got != 0 {
			t.Errorf("(%d, %d) = %v, want 0", x, y, got)
		}
		if got := m.CostAt(x, y); got != want {
			t.Errorf("cost at (%d, %d) = %v, want %v", x, y, got, want)
		}
	}
}
