package disparity

import (
	"fmt"
	"math"
)

// Engine computes disparity maps for image pairs with samples of type T,
// accumulating window costs in S.
//
// An Engine is safe for concurrent use; each Process call draws its own
// workspaces from the engine's pool.
type Engine[T Pixel, S Cost] struct {
	cfg     Config
	element elementFunc[T, S]
	proto   *selector[S]
	pool    workspacePool[S]
}

// New validates cfg and returns an Engine for it. With integer costs the
// region must be small enough that no window cost can overflow S.
func New[T Pixel, S Cost](cfg Config) (*Engine[T, S], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkCostRange[T, S](cfg); err != nil {
		return nil, err
	}
	return &Engine[T, S]{
		cfg:     cfg,
		element: elementKernel[T, S](cfg.Error),
		proto:   newSelector[S](cfg.Select),
	}, nil
}

// NewU8 returns an engine for 8-bit images with 32-bit integer costs.
// SSD with a five-region radius above 51 needs
// New[uint8, int64].
func NewU8(cfg Config) (*Engine[uint8, int32], error) {
	return New[uint8, int32](cfg)
}

// NewU16 returns an engine for 16-bit images with 64-bit integer costs.
func NewU16(cfg Config) (*Engine[uint16, int64], error) {
	return New[uint16, int64](cfg)
}

// NewF32 returns an engine for float32 images with float32 costs.
func NewF32(cfg Config) (*Engine[float32, float32], error) {
	return New[float32, float32](cfg)
}

// Config returns the engine configuration.
func (e *Engine[T, S]) Config() Config {
	return e.cfg
}

// PoolStats returns workspace pool statistics: (allocCount, hitCount, missCount).
func (e *Engine[T, S]) PoolStats() (allocs, hits, misses int64) {
	return e.pool.stats()
}

// ResetPoolStats zeroes the workspace pool statistics.
func (e *Engine[T, S]) ResetPoolStats() {
	e.pool.resetStats()
}

// Process matches left against right and returns a new disparity map.
// All preconditions are checked before any work is done; the result is
// either a complete map or an error.
func (e *Engine[T, S]) Process(left, right *Gray[T]) (*Map, error) {
	if err := e.check(left, right); err != nil {
		return nil, err
	}
	dst := NewMap(left.Width, left.Height, e.cfg.MinDisparity, e.cfg.MaxDisparity)
	if e.cfg.Select.RecordCost {
		dst.Cost = make([]float32, len(dst.Pix))
	}
	e.run(left, right, dst)
	return dst, nil
}

// ProcessInto is like Process but writes into dst, which must have the
// shape of the input images. Every cell of dst is overwritten.
func (e *Engine[T, S]) ProcessInto(dst *Map, left, right *Gray[T]) error {
	if err := e.check(left, right); err != nil {
		return err
	}
	if dst == nil {
		return fmt.Errorf("%w: nil map", ErrMapShape)
	}
	if err := dst.reshape(left.Width, left.Height, e.cfg.MinDisparity, e.cfg.MaxDisparity, e.cfg.Select.RecordCost); err != nil {
		return err
	}
	e.run(left, right, dst)
	return nil
}

// check validates the image pair against the configuration.
func (e *Engine[T, S]) check(left, right *Gray[T]) error {
	if left == nil || right == nil {
		return ErrNilImage
	}
	if !left.SameShape(right) {
		return fmt.Errorf("%w: left %dx%d, right %dx%d",
			ErrShapeMismatch, left.Width, left.Height, right.Width, right.Height)
	}
	for _, img := range []*Gray[T]{left, right} {
		if img.Stride < img.Width || len(img.Pix) < (img.Height-1)*img.Stride+img.Width {
			return fmt.Errorf("%w: stride %d, %d samples for %dx%d",
				ErrShapeMismatch, img.Stride, len(img.Pix), img.Width, img.Height)
		}
	}
	return e.cfg.CheckShape(left.Width, left.Height)
}

// run splits the image into bands and processes them.
func (e *Engine[T, S]) run(left, right *Gray[T], dst *Map) {
	g := newGeometry(e.cfg, left.Width, left.Height)

	bandHeight := e.cfg.Parallel.BandHeight
	if bandHeight <= 0 {
		bandHeight = 2*g.borderY + 1
	}
	bands := splitBands(g.height, bandHeight)

	acquire := func() *workspace[S] {
		ws := e.pool.get()
		ws.checkSize(&g, e.cfg.Region, e.proto, dst)
		return ws
	}
	forEachBand(e.cfg.Parallel, bands, acquire, e.pool.put, func(ws *workspace[S], b band) {
		e.processBand(ws, &g, left, right, dst, b)
	})
}

// processBand computes the output rows of one band. Rows of the band in the
// image border are marked invalid; every other row is selected exactly once.
func (e *Engine[T, S]) processBand(ws *workspace[S], g *geometry, left, right *Gray[T], dst *Map, b band) {
	emitStart, emitEnd, row0, row1 := b.sourceRows(g.height, g.borderY)

	inf := float32(math.Inf(1))
	for row := b.minRow; row < b.maxRow; row++ {
		if row >= emitStart && row < emitEnd {
			continue
		}
		out := dst.Row(row)
		for x := range out {
			out[x] = dst.Invalid()
		}
		if dst.Cost != nil {
			start := row * dst.Stride
			cost := dst.Cost[start : start+g.width]
			for x := range cost {
				cost[x] = inf
			}
		}
	}
	if emitStart >= emitEnd {
		return
	}

	e.computeFirstRows(ws, g, left, right, row0)
	e.computeRemainingRows(ws, g, left, right, row0, row1)
}

// computeFirstRows scores the first regionHeight source rows of a band and
// seeds the vertical sums with them.
func (e *Engine[T, S]) computeFirstRows(ws *workspace[S], g *geometry, left, right *Gray[T], row0 int) {
	ws.acc.reset(g.regionHeight, g.scoreLength)
	for k := 0; k < g.regionHeight; k++ {
		row := row0 + k
		computeScoreRow(g, e.element, left.Row(row), right.Row(row), ws.acc.seedRow(k), ws.elementScore)
	}
	ws.acc.seed()
	e.emit(ws, g, row0+g.regionHeight-1)
}

// computeRemainingRows slides the vertical window down to row1, one source
// row at a time.
func (e *Engine[T, S]) computeRemainingRows(ws *workspace[S], g *geometry, left, right *Gray[T], row0, row1 int) {
	for row := row0 + g.regionHeight; row < row1; row++ {
		scores := ws.acc.beginRow()
		computeScoreRow(g, e.element, left.Row(row), right.Row(row), scores, ws.elementScore)
		ws.acc.endRow()
		e.emit(ws, g, row)
	}
}

// emit finalizes the output row that becomes complete once source row has
// been admitted, if any.
func (e *Engine[T, S]) emit(ws *workspace[S], g *geometry, row int) {
	if e.cfg.Region == RegionRect {
		ws.sel.process(row-g.radiusY, ws.acc.lookback(0))
		return
	}
	if ws.acc.active < 2*g.radiusY {
		return
	}
	top := ws.acc.lookback(2 * g.radiusY)
	middle := ws.acc.lookback(g.radiusY)
	bottom := ws.acc.lookback(0)
	combineFive(g, top, middle, bottom, ws.fiveScore)
	// the five-region row is centered 1+4*radiusY rows behind the next source
	// row, i.e. row - 1 - 4*radiusY + 2*radiusY + 1
	ws.sel.process(row-2*g.radiusY, ws.fiveScore)
}
