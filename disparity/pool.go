package disparity

import (
	"sync"
	"sync/atomic"
)

// workspace holds the buffers one band needs. A workspace is used by a single
// goroutine at a time and handed back to its pool when the band set is done.
type workspace[S Cost] struct {
	// per-column pixel costs of the row and hypothesis being scored
	elementScore []S
	// rolling horizontal rows and vertical sums
	acc verticalAccumulator[S]
	// final five-region costs of the row being selected
	fiveScore []S
	// private selector instance
	sel *selector[S]
}

// checkSize grows the buffers to fit g and binds the selector to dst.
// Buffers are never shrunk.
func (w *workspace[S]) checkSize(g *geometry, region RegionType, proto *selector[S], dst *Map) {
	if cap(w.elementScore) < g.width {
		w.elementScore = make([]S, g.width)
	}
	w.elementScore = w.elementScore[:g.width]

	w.acc.reset(g.regionHeight, g.scoreLength)

	if region == RegionFive {
		if cap(w.fiveScore) < g.scoreLength {
			w.fiveScore = make([]S, g.scoreLength)
		}
		w.fiveScore = w.fiveScore[:g.scoreLength]
	}

	if w.sel == nil {
		w.sel = proto.clone()
	}
	w.sel.configure(dst, g)
}

// workspacePool recycles workspaces across bands and Process calls.
type workspacePool[S Cost] struct {
	pool       sync.Pool
	allocCount int64 // atomic: workspaces requested
	hitCount   int64 // atomic: requests served from the pool
	missCount  int64 // atomic: requests that allocated
}

// get returns a workspace, reusing a pooled one when available.
// The caller must size it with checkSize before use.
func (p *workspacePool[S]) get() *workspace[S] {
	atomic.AddInt64(&p.allocCount, 1)
	if v := p.pool.Get(); v != nil {
		atomic.AddInt64(&p.hitCount, 1)
		return v.(*workspace[S])
	}
	atomic.AddInt64(&p.missCount, 1)
	return &workspace[S]{}
}

// put returns a workspace to the pool. It must not be used afterwards.
func (p *workspacePool[S]) put(w *workspace[S]) {
	if w == nil {
		return
	}
	// drop the output binding so a pooled workspace does not pin a map
	if w.sel != nil {
		w.sel.dst = nil
		w.sel.g = nil
	}
	p.pool.Put(w)
}

// stats returns (allocCount, hitCount, missCount).
func (p *workspacePool[S]) stats() (allocs, hits, misses int64) {
	return atomic.LoadInt64(&p.allocCount),
		atomic.LoadInt64(&p.hitCount),
		atomic.LoadInt64(&p.missCount)
}

// resetStats zeroes the pool statistics.
func (p *workspacePool[S]) resetStats() {
	atomic.StoreInt64(&p.allocCount, 0)
	atomic.StoreInt64(&p.hitCount, 0)
	atomic.StoreInt64(&p.missCount, 0)
}
