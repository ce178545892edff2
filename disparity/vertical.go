package disparity

// verticalAccumulator keeps the sum of the last regionHeight score rows.
//
// Both the horizontal rows and the vertical sums live in circular buffers of
// regionHeight slots. After seeding, active counts the rows admitted since the
// seed; the current sum is in slot active%size and the sum k rows earlier in
// slot (active-k)%size, which is how the five-region combiner looks back by
// radiusY and 2*radiusY.
type verticalAccumulator[S Cost] struct {
	horizontal [][]S
	vertical   [][]S
	size       int
	length     int
	active     int
	seeded     bool
	pending    bool
}

// reset sizes the accumulator for regionHeight rows of length entries and
// marks it unseeded. Buffers grow but never shrink; contents are cleared when
// the row length changes so stale entries from another image shape never mix
// into the sums.
func (v *verticalAccumulator[S]) reset(regionHeight, length int) {
	if len(v.horizontal) < regionHeight || (len(v.horizontal) > 0 && cap(v.horizontal[0]) < length) {
		v.horizontal = make([][]S, regionHeight)
		v.vertical = make([][]S, regionHeight)
		for k := range v.horizontal {
			v.horizontal[k] = make([]S, length)
			v.vertical[k] = make([]S, length)
		}
	} else if v.length != length {
		for k := 0; k < regionHeight; k++ {
			v.horizontal[k] = v.horizontal[k][:length]
			v.vertical[k] = v.vertical[k][:length]
			clear(v.horizontal[k])
			clear(v.vertical[k])
		}
	}
	v.size = regionHeight
	v.length = length
	v.active = 0
	v.seeded = false
	v.pending = false
}

// seedRow returns the horizontal slot for the k-th row of the seed window.
func (v *verticalAccumulator[S]) seedRow(k int) []S {
	if v.seeded {
		panic("disparity: vertical accumulator seeded twice")
	}
	v.mustFit()
	return v.horizontal[k][:v.length]
}

// seed sums the regionHeight seed rows into the first vertical slot.
func (v *verticalAccumulator[S]) seed() {
	v.mustFit()
	first := v.vertical[0][:v.length]
	copy(first, v.horizontal[0][:v.length])
	for k := 1; k < v.size; k++ {
		row := v.horizontal[k][:v.length]
		for i, s := range row {
			first[i] += s
		}
	}
	v.active = 0
	v.seeded = true
}

// beginRow subtracts the row leaving the window from the previous sum and
// returns its slot so the caller can overwrite it with the entering row.
func (v *verticalAccumulator[S]) beginRow() []S {
	if !v.seeded {
		panic("disparity: vertical accumulator advanced before seeding")
	}
	if v.pending {
		panic("disparity: vertical accumulator row already open")
	}
	leaving := v.horizontal[v.active%v.size][:v.length]
	previous := v.vertical[v.active%v.size][:v.length]
	v.active++
	current := v.vertical[v.active%v.size][:v.length]
	for i, s := range leaving {
		current[i] = previous[i] - s
	}
	v.pending = true
	return leaving
}

// endRow adds the row written into the slot returned by beginRow.
func (v *verticalAccumulator[S]) endRow() {
	if !v.pending {
		panic("disparity: vertical accumulator endRow without beginRow")
	}
	entering := v.horizontal[(v.active-1)%v.size][:v.length]
	current := v.vertical[v.active%v.size][:v.length]
	for i, s := range entering {
		current[i] += s
	}
	v.pending = false
}

// lookback returns the vertical sum k rows behind the current one.
func (v *verticalAccumulator[S]) lookback(k int) []S {
	if !v.seeded || v.pending {
		panic("disparity: vertical accumulator read before its sums are complete")
	}
	if k < 0 || k >= v.size || k > v.active {
		panic("disparity: vertical accumulator lookback out of range")
	}
	return v.vertical[(v.active-k)%v.size][:v.length]
}

// mustFit panics when the buffers cannot hold the configured rows.
func (v *verticalAccumulator[S]) mustFit() {
	if v.size == 0 || len(v.horizontal) < v.size || cap(v.horizontal[0]) < v.length {
		panic("disparity: vertical accumulator buffers undersized")
	}
}
