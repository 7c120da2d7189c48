package position

import (
	"testing"

	"github.com/pspoerri/tilestitch/internal/frame"
	"github.com/pspoerri/tilestitch/internal/grid"
)

func writeBlankTile(t *testing.T, dir, name string, ysize, xsize, nfrms int) {
	t.Helper()
	plane := make([]float64, ysize*xsize)
	frames := make([][]float64, nfrms)
	for z := range frames {
		frames[z] = plane
	}
	if err := frame.Write(dir+"/"+name, ysize, xsize, [][][]float64{frames}); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func makeTileGridForPositionTest(t *testing.T) (*grid.Grid, map[string]*grid.Tile) {
	t.Helper()
	dir := t.TempDir()
	const ysize, xsize, nfrms = 100, 100, 5
	names := []string{
		"x_0_y_0_z_0.tstk",
		"x_100_y_0_z_0.tstk",
		"x_0_y_100_z_0.tstk",
		"x_100_y_100_z_0.tstk",
	}
	for _, name := range names {
		writeBlankTile(t, dir, name, ysize, xsize, nfrms)
	}
	g, err := grid.Load(dir, grid.Options{AscendingX: true, AscendingY: true})
	if err != nil {
		t.Fatalf("grid.Load: %v", err)
	}
	tiles := make(map[string]*grid.Tile)
	for _, name := range names {
		tl, ok := g.Tile(name)
		if !ok {
			t.Fatalf("tile %s not found", name)
		}
		tiles[name] = tl
	}
	return g, tiles
}

func TestEstimateTwoByTwo(t *testing.T) {
	g, tiles := makeTileGridForPositionTest(t)

	tl00 := tiles["x_0_y_0_z_0.tstk"]
	tl01 := tiles["x_100_y_0_z_0.tstk"]
	tl10 := tiles["x_0_y_100_z_0.tstk"]
	tl11 := tiles["x_100_y_100_z_0.tstk"]

	pairs := grid.NewTable()
	// East pairs: px = xsize - dy, py = -dx (axis=2 rotation convention).
	// dy=20 on a 100px-wide tile yields an 80px east step.
	pairs.Put(grid.Pair{AName: tl00.Name, BName: tl01.Name, Axis: grid.AxisEast, DZ: 0, DY: 20, DX: 0, Score: 0.95})
	pairs.Put(grid.Pair{AName: tl10.Name, BName: tl11.Name, Axis: grid.AxisEast, DZ: 0, DY: 20, DX: 0, Score: 0.95})
	// South pairs: py = ysize - dy, px = dx.
	pairs.Put(grid.Pair{AName: tl00.Name, BName: tl10.Name, Axis: grid.AxisSouth, DZ: 0, DY: 20, DX: 0, Score: 0.95})
	pairs.Put(grid.Pair{AName: tl01.Name, BName: tl11.Name, Axis: grid.AxisSouth, DZ: 0, DY: 20, DX: 0, Score: 0.95})

	if err := Estimate(g, pairs); err != nil {
		t.Fatalf("Estimate: %v", err)
	}

	if tl00.Absolute != [3]int{0, 0, 0} {
		t.Errorf("tl00.Absolute = %v, want {0,0,0}", tl00.Absolute)
	}
	if tl01.Absolute[0] != 80 {
		t.Errorf("tl01.Absolute X = %d, want 80 (east step)", tl01.Absolute[0])
	}
	if tl10.Absolute[1] != 80 {
		t.Errorf("tl10.Absolute Y = %d, want 80 (south step)", tl10.Absolute[1])
	}
}

func TestEstimateDisconnectedFallsBackToNominal(t *testing.T) {
	g, tiles := makeTileGridForPositionTest(t)
	tl00 := tiles["x_0_y_0_z_0.tstk"]
	tl11 := tiles["x_100_y_100_z_0.tstk"]

	// Only wire up the origin tile; tl11 has no path from it.
	pairs := grid.NewTable()
	pairs.Put(grid.Pair{AName: tl00.Name, BName: tiles["x_100_y_0_z_0.tstk"].Name, Axis: grid.AxisEast, Score: 0.9, DY: 20})

	if err := Estimate(g, pairs); err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if tl11.Absolute != tl11.Nominal {
		t.Errorf("unreached tile Absolute = %v, want nominal %v", tl11.Absolute, tl11.Nominal)
	}
}
