package disparity

import "math"

// selector turns one row of final costs into disparities.
//
// Its configuration is an immutable value; the column scratch and the output
// binding are private, so every tile works on its own clone.
type selector[S Cost] struct {
	cfg SelectConfig

	// set by configure
	g           *geometry
	regionWidth int
	invalid     float32
	dst         *Map

	// costs of the column being selected, indexed by disparity - min
	column []S
}

func newSelector[S Cost](cfg SelectConfig) *selector[S] {
	return &selector[S]{cfg: cfg}
}

// clone returns a selector sharing the configuration but no mutable state.
func (s *selector[S]) clone() *selector[S] {
	return &selector[S]{cfg: s.cfg}
}

// configure binds the selector to an output map and image geometry.
func (s *selector[S]) configure(dst *Map, g *geometry) {
	s.g = g
	s.dst = dst
	s.regionWidth = 2*g.borderX + 1
	s.invalid = dst.Invalid()
	if cap(s.column) < g.rangeDisparity {
		s.column = make([]S, g.rangeDisparity)
	}
	s.column = s.column[:g.rangeDisparity]
}

// process writes every cell of output row y from scores, which uses the
// score row layout with an effective window of 2*borderX+1 columns.
//
// A pixel is matched only when its window fits and every hypothesis is in
// bounds, so the first borderX+maxDisparity-1 columns and the last borderX
// columns are invalid.
func (s *selector[S]) process(y int, scores []S) {
	g := s.g
	out := s.dst.Row(y)
	var cost []float32
	if s.dst.Cost != nil {
		start := y * s.dst.Stride
		cost = s.dst.Cost[start : start+g.width]
	}

	first := g.borderX + g.maxDisparity - 1
	last := g.width - 1 - g.borderX
	inf := float32(math.Inf(1))

	for x := 0; x < g.width; x++ {
		if x < first || x > last {
			out[x] = s.invalid
			if cost != nil {
				cost[x] = inf
			}
			continue
		}

		v, c, ok := s.selectColumn(x-g.borderX, scores)
		if !ok {
			out[x] = s.invalid
			if cost != nil {
				cost[x] = inf
			}
			continue
		}
		out[x] = v
		if cost != nil {
			cost[x] = float32(c)
		}
	}
}

// selectColumn picks the disparity for the window starting at left column
// col. It returns the disparity, its cost and whether the match survived the
// rejection gates.
func (s *selector[S]) selectColumn(col int, scores []S) (float32, S, bool) {
	best := s.loadColumn(col, scores)
	bestScore := s.column[best]

	if s.exceedsError(best) ||
		s.failsRightToLeft(col, best, scores) ||
		s.lacksTexture(best) ||
		s.belowNoiseFloor(best) {
		return s.invalid, bestScore, false
	}
	return s.refine(best), bestScore, true
}

// loadColumn copies the costs of column col into the scratch buffer and
// returns the index of the lowest one. Ties go to the smallest disparity.
func (s *selector[S]) loadColumn(col int, scores []S) int {
	g := s.g
	j := col - g.minDisparity
	best := 0
	for i := range s.column {
		v := scores[i*g.width+j]
		s.column[i] = v
		if v < s.column[best] {
			best = i
		}
	}
	return best
}

// exceedsError reports whether the best cost is above MaxError.
func (s *selector[S]) exceedsError(best int) bool {
	return s.cfg.MaxError >= 0 && float64(s.column[best]) > s.cfg.MaxError
}

// failsRightToLeft matches the chosen right window back against every left
// window that contains it and reports whether that search disagrees by more
// than RightToLeftTolerance.
func (s *selector[S]) failsRightToLeft(col, best int, scores []S) bool {
	if s.cfg.RightToLeftTolerance < 0 {
		return false
	}
	g := s.g
	// start column of the matched window in the right image
	r := col - (g.minDisparity + best)

	lastStart := g.width - s.regionWidth
	reverse := 0
	var reverseScore S
	for i := 0; i < g.rangeDisparity && r+g.minDisparity+i <= lastStart; i++ {
		v := scores[i*g.width+r+i]
		if i == 0 || v < reverseScore {
			reverseScore = v
			reverse = i
		}
	}

	diff := reverse - best
	if diff < 0 {
		diff = -diff
	}
	return diff > s.cfg.RightToLeftTolerance
}

// lacksTexture reports whether the best cost is not distinct enough from the
// runner-up. With three or more hypotheses the direct neighbors of the best
// one are skipped, since a smooth cost curve always has a close neighbor.
func (s *selector[S]) lacksTexture(best int) bool {
	if s.cfg.TextureThreshold <= 0 {
		return false
	}
	skipNeighbors := len(s.column) >= 3
	second := math.Inf(1)
	for i, v := range s.column {
		if i == best || (skipNeighbors && (i == best-1 || i == best+1)) {
			continue
		}
		second = math.Min(second, float64(v))
	}
	if math.IsInf(second, 1) {
		return false
	}
	bestScore := float64(s.column[best])
	return second-bestScore <= s.cfg.TextureThreshold*bestScore
}

// belowNoiseFloor reports whether the costs barely vary across hypotheses.
func (s *selector[S]) belowNoiseFloor(best int) bool {
	if s.cfg.MinVariation <= 0 {
		return false
	}
	worst := s.column[0]
	for _, v := range s.column[1:] {
		if v > worst {
			worst = v
		}
	}
	return float64(worst)-float64(s.column[best]) < s.cfg.MinVariation
}

// refine converts the winning index to a disparity, fitting a parabola
// through the costs at best-1, best and best+1 in subpixel mode. At either
// end of the range there is no neighbor and the integer value is kept.
func (s *selector[S]) refine(best int) float32 {
	d := float64(s.g.minDisparity + best)
	if s.cfg.Mode != SelectSubpixel || best <= 0 || best >= len(s.column)-1 {
		return float32(d)
	}
	c0 := float64(s.column[best-1])
	c1 := float64(s.column[best])
	c2 := float64(s.column[best+1])
	den := 2 * (c0 - 2*c1 + c2)
	if den == 0 {
		return float32(d)
	}
	return float32(d + (c0-c2)/den)
}
