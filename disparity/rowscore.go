package disparity

// geometry holds the sizes derived from a Config and an image shape.
// It is immutable once built and shared by every band of a Process call.
type geometry struct {
	width, height  int
	minDisparity   int
	maxDisparity   int
	rangeDisparity int

	// radiusX and radiusY describe one matching window; borderX and borderY
	// the effective support after region combination.
	radiusX, radiusY          int
	regionWidth, regionHeight int
	borderX, borderY          int

	// scoreLength is the length of one disparity-major score row:
	// rangeDisparity blocks of width entries.
	scoreLength int
}

func newGeometry(c Config, width, height int) geometry {
	return geometry{
		width:          width,
		height:         height,
		minDisparity:   c.MinDisparity,
		maxDisparity:   c.MaxDisparity,
		rangeDisparity: c.Range(),
		radiusX:        c.RadiusX,
		radiusY:        c.RadiusY,
		regionWidth:    2*c.RadiusX + 1,
		regionHeight:   2*c.RadiusY + 1,
		borderX:        c.BorderX(),
		borderY:        c.BorderY(),
		scoreLength:    c.Range() * width,
	}
}

// computeScoreRow fills scores with the cost of every horizontal window of
// one image row, for every hypothesis.
//
// For hypothesis d the entry at (d-min)*width + j holds the cost of the
// window whose left-image start column is min+j, matched against the right
// window starting at min+j-d. Only j in [d-min, width-regionWidth-min] is
// written. The first window of each hypothesis is summed directly and every
// following one is derived by adding the entering column and subtracting the
// leaving one.
func computeScoreRow[T Pixel, S Cost](g *geometry, element elementFunc[T, S],
	left, right []T, scores, elementScore []S) {
	for d := g.minDisparity; d < g.maxDisparity; d++ {
		i := d - g.minDisparity
		// number of overlapping columns at this disparity
		colMax := g.width - d
		// number of windows after the first one
		scoreMax := colMax - g.regionWidth

		element(elementScore[:colMax], left[d:g.width], right[:colMax])

		index := i*g.width + i
		var score S
		for c := 0; c < g.regionWidth; c++ {
			score += elementScore[c]
		}
		scores[index] = score
		index++

		for c := 0; c < scoreMax; c++ {
			score += elementScore[c+g.regionWidth] - elementScore[c]
			scores[index] = score
			index++
		}
	}
}
