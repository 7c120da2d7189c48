package align

import (
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/pspoerri/tilestitch/internal/frame"
	"github.com/pspoerri/tilestitch/internal/grid"
)

func randomPlane(rng *rand.Rand, ysize, xsize int) []float64 {
	p := make([]float64, ysize*xsize)
	for i := range p {
		p[i] = rng.Float64()
	}
	return p
}

// buildSouthPair writes a pair of synthetic tiles to dir where b's top
// `overlap` rows exactly reproduce a's bottom `overlap` rows at Z=zFrame,
// so the true shift is known exactly: dz=0, dx=0, and the aligner should
// recover dy=overlap (full, unshifted overlap).
func buildSouthPair(t *testing.T, dir string, ysize, xsize, nfrms, overlap, zFrame int) {
	t.Helper()
	rng := rand.New(rand.NewSource(11))

	aPlanes := make([][]float64, nfrms)
	bPlanes := make([][]float64, nfrms)
	for z := 0; z < nfrms; z++ {
		aPlanes[z] = randomPlane(rng, ysize, xsize)
		bPlanes[z] = randomPlane(rng, ysize, xsize)
	}

	// Overwrite b's first `overlap` rows at zFrame with a's last `overlap`
	// rows at zFrame, so the two tiles share an exact overlap there.
	for y := 0; y < overlap; y++ {
		srcRow := ysize - overlap + y
		copy(bPlanes[zFrame][y*xsize:(y+1)*xsize], aPlanes[zFrame][srcRow*xsize:(srcRow+1)*xsize])
	}

	if err := frame.Write(filepath.Join(dir, "a.tstk"), ysize, xsize, [][][]float64{aPlanes}); err != nil {
		t.Fatalf("writing tile a: %v", err)
	}
	if err := frame.Write(filepath.Join(dir, "b.tstk"), ysize, xsize, [][][]float64{bPlanes}); err != nil {
		t.Fatalf("writing tile b: %v", err)
	}
}

func TestAlignSouthRecoversKnownShift(t *testing.T) {
	dir := t.TempDir()
	const ysize, xsize, nfrms = 100, 100, 10
	const overlap, maxShiftZ, maxShiftX = 20, 2, 10
	const zFrame = 5 // matches nfrms/2

	buildSouthPair(t, dir, ysize, xsize, nfrms, overlap, zFrame)

	job := grid.NeighborJob{
		A:    &grid.Tile{Name: "a.tstk", NFrms: nfrms, YSize: ysize, XSize: xsize},
		B:    &grid.Tile{Name: "b.tstk", NFrms: nfrms, YSize: ysize, XSize: xsize},
		Axis: grid.AxisSouth,
	}
	cfg := Config{Overlap: overlap, MaxShiftZ: maxShiftZ, MaxShiftX: maxShiftX}

	p, ok, err := Align(dir, job, zFrame, cfg)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if !ok {
		t.Fatal("Align reported underflow, want a recorded pair")
	}

	if p.DZ != 0 {
		t.Errorf("DZ = %d, want 0", p.DZ)
	}
	if p.DX != 0 {
		t.Errorf("DX = %d, want 0", p.DX)
	}
	if p.DY != overlap {
		t.Errorf("DY = %d, want %d", p.DY, overlap)
	}
	if p.Score < 0.99 {
		t.Errorf("Score = %v, want >= 0.99", p.Score)
	}
}

func TestAlignUnderflowOnShortOverlap(t *testing.T) {
	dir := t.TempDir()
	const ysize, xsize, nfrms = 30, 30, 4
	buildSouthPair(t, dir, ysize, xsize, nfrms, 10, 2)

	job := grid.NeighborJob{
		A:    &grid.Tile{Name: "a.tstk", NFrms: nfrms, YSize: ysize, XSize: xsize},
		B:    &grid.Tile{Name: "b.tstk", NFrms: nfrms, YSize: ysize, XSize: xsize},
		Axis: grid.AxisSouth,
	}
	// overlap larger than the tile height forces the slab crop to underflow.
	cfg := Config{Overlap: 1000, MaxShiftZ: 1, MaxShiftX: 4}

	_, ok, err := Align(dir, job, nfrms/2, cfg)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if ok {
		t.Fatal("expected underflow (ok=false)")
	}
}

func TestJobMemoryBytesScalesWithVolume(t *testing.T) {
	small := jobMemoryBytes(5, 100, 100)
	large := jobMemoryBytes(5, 200, 200)
	if large <= small {
		t.Fatalf("expected larger volume to need more memory: small=%d large=%d", small, large)
	}
	if small <= 0 {
		t.Fatalf("jobMemoryBytes returned non-positive value: %d", small)
	}
}

func TestPoolSizeFallsBackWhenUnconstrained(t *testing.T) {
	// With a tiny job footprint, the memory budget should never reduce
	// below the requested concurrency.
	got := PoolSize(4, 1, 4, 4, false)
	if got != 4 {
		t.Fatalf("PoolSize = %d, want 4", got)
	}
}

func TestRunPoolRecordsAllJobs(t *testing.T) {
	dir := t.TempDir()
	const ysize, xsize, nfrms = 60, 60, 8
	const overlap, maxShiftZ, maxShiftX = 16, 1, 8
	buildSouthPair(t, dir, ysize, xsize, nfrms, overlap, nfrms/2)

	a := &grid.Tile{Name: "a.tstk", NFrms: nfrms, YSize: ysize, XSize: xsize}
	b := &grid.Tile{Name: "b.tstk", NFrms: nfrms, YSize: ysize, XSize: xsize}
	jobs := []grid.NeighborJob{{A: a, B: b, Axis: grid.AxisSouth}}

	table, stats, err := RunPool(jobs, PoolConfig{
		Dir:         dir,
		Concurrency: 2,
		Config:      Config{Overlap: overlap, MaxShiftZ: maxShiftZ, MaxShiftX: maxShiftX},
	})
	if err != nil {
		t.Fatalf("RunPool: %v", err)
	}
	if stats.Recorded != 1 || table.Len() != 1 {
		t.Fatalf("stats=%+v table.Len()=%d, want 1 recorded pair", stats, table.Len())
	}

	p, found := table.Get("a.tstk", "b.tstk", grid.AxisSouth)
	if !found {
		t.Fatal("expected pair a->b to be recorded")
	}
	if math.Abs(p.Score) > 1.001 {
		t.Fatalf("score out of range: %v", p.Score)
	}
}
