package disparity

// combineFive computes the five-region cost of every column and hypothesis.
//
// top, middle and bottom are vertical sums whose windows are centered
// 2*radiusY, radiusY and 0 rows apart. For each position the four corner
// windows top[j-radiusX], top[j+radiusX], bottom[j-radiusX] and
// bottom[j+radiusX] are sampled, the two smallest are kept and the center
// window middle[j] is added. Discarding the two worst corners lets the
// support shrink away from a depth edge instead of averaging across it.
//
// The result uses the score row layout with an effective window width of
// 4*radiusX+1: entry (d-min)*width + j covers left columns starting at min+j.
func combineFive[S Cost](g *geometry, top, middle, bottom, score []S) {
	rx := g.radiusX
	for d := g.minDisparity; d < g.maxDisparity; d++ {
		i := d - g.minDisparity

		// the sub-regions sit radiusX inside the effective region
		src := i*g.width + i + rx
		dst := i*g.width + i
		end := src + (g.width - d - 4*rx)

		for ; src < end; src, dst = src+1, dst+1 {
			v0 := top[src-rx]
			v1 := top[src+rx]
			v2 := bottom[src-rx]
			v3 := bottom[src+rx]

			if v1 < v0 {
				v0, v1 = v1, v0
			}
			if v3 < v2 {
				v2, v3 = v3, v2
			}

			var s S
			switch {
			case v3 < v0:
				s = v2 + v3
			case v2 < v1:
				s = v2 + v0
			default:
				s = v0 + v1
			}

			score[dst] = s + middle[src]
		}
	}
}
