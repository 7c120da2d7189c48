package ncc

import "sync"

// workspacePool reuses complex128 scratch grids keyed by element count.
// Pair-alignment jobs (internal/align) submit many NCC calls of the same
// search-volume shape concurrently; pooling the scratch buffers avoids
// re-allocating Y_A*X_A complex128 grids per job, the same trade the
// teacher makes for *image.RGBA tile buffers (internal/tile/rgbapool.go).
var workspacePool sync.Map // map[int]*sync.Pool

func getGrid(n int) []complex128 {
	p, _ := workspacePool.LoadOrStore(n, &sync.Pool{})
	pool := p.(*sync.Pool)
	if v := pool.Get(); v != nil {
		g := v.([]complex128)
		for i := range g {
			g[i] = 0
		}
		return g
	}
	return make([]complex128, n)
}

func putGrid(g []complex128) {
	if g == nil {
		return
	}
	p, _ := workspacePool.LoadOrStore(len(g), &sync.Pool{})
	p.(*sync.Pool).Put(g)
}
