package disparity

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// ParallelConfig configures how row bands are scheduled.
type ParallelConfig struct {
	// NumWorkers caps the goroutines matching bands. 0 uses GOMAXPROCS.
	NumWorkers int `json:"numWorkers"`

	// GrainSize is the number of bands each worker must have before the
	// engine fans out. Smaller jobs run on the calling goroutine.
	GrainSize int `json:"grainSize"`

	// BandHeight is the number of output rows per band. 0 means the height of
	// the effective matching support. The band layout, not the worker count,
	// determines the result.
	BandHeight int `json:"bandHeight"`
}

// DefaultParallelConfig uses every CPU as soon as each has a band.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{GrainSize: 1}
}

func effectiveWorkers(config ParallelConfig) int {
	if config.NumWorkers > 0 {
		return config.NumWorkers
	}
	return runtime.GOMAXPROCS(0)
}

// band is a contiguous range of output rows [minRow, maxRow).
type band struct {
	minRow, maxRow int
}

// splitBands partitions [0, height) into bands of bandHeight rows.
// The last band may be shorter.
func splitBands(height, bandHeight int) []band {
	if bandHeight <= 0 {
		bandHeight = 1
	}
	bands := make([]band, 0, (height+bandHeight-1)/bandHeight)
	for row := 0; row < height; row += bandHeight {
		end := row + bandHeight
		if end > height {
			end = height
		}
		bands = append(bands, band{minRow: row, maxRow: end})
	}
	return bands
}

// sourceRows returns the output rows a band can produce and the source rows
// it must read to produce them. Rows of the band outside [emitStart, emitEnd)
// lie in the image border and carry no match. When the band produces nothing,
// emitStart >= emitEnd and no source rows are needed.
func (b band) sourceRows(height, borderY int) (emitStart, emitEnd, row0, row1 int) {
	emitStart = max(b.minRow, borderY)
	emitEnd = min(b.maxRow, height-borderY)
	return emitStart, emitEnd, emitStart - borderY, emitEnd + borderY
}

// forEachBand runs fn over every band. Each goroutine acquires one state
// value, uses it for all of the bands it claims and releases it when done, so
// state is never shared between goroutines. Bands are claimed one at a time
// from a shared cursor. With one worker, or too few bands to be worth
// splitting, all bands run in order on the calling goroutine.
func forEachBand[W any](config ParallelConfig, bands []band,
	acquire func() W, release func(W), fn func(w W, b band)) {
	workers := effectiveWorkers(config)
	if workers == 1 || len(bands) <= config.GrainSize*workers {
		w := acquire()
		for _, b := range bands {
			fn(w, b)
		}
		release(w)
		return
	}
	workers = min(workers, len(bands))

	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for n := 0; n < workers; n++ {
		go func() {
			defer wg.Done()
			w := acquire()
			defer release(w)
			for {
				i := int(next.Add(1) - 1)
				if i >= len(bands) {
					return
				}
				fn(w, bands[i])
			}
		}()
	}
	wg.Wait()
}
