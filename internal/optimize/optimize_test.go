package optimize

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/pspoerri/tilestitch/internal/frame"
	"github.com/pspoerri/tilestitch/internal/grid"
)

func writeBlank(t *testing.T, dir, name string, ysize, xsize, nfrms int) {
	t.Helper()
	plane := make([]float64, ysize*xsize)
	frames := make([][]float64, nfrms)
	for z := range frames {
		frames[z] = plane
	}
	if err := frame.Write(filepath.Join(dir, name), ysize, xsize, [][][]float64{frames}); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	ysize, xsize := 2, 3
	x := make([]float64, ysize*xsize*3)
	// cell increments: row0 = east steps of (0,0,450) each; row1 = south
	// steps of (0,420,0) from the cell above, in every column.
	set := func(r, c int, pz, py, px float64) {
		i := (r*xsize + c) * 3
		x[i], x[i+1], x[i+2] = pz, py, px
	}
	set(0, 0, 0, 0, 0)
	set(0, 1, 0, 0, 450)
	set(0, 2, 0, 0, 450)
	set(1, 0, 0, 420, 0)
	set(1, 1, 0, 420, 0)
	set(1, 2, 0, 420, 0)

	tiles := decode(x, ysize, xsize)
	want := [][]vec3{
		{{0, 0, 0}, {0, 0, 450}, {0, 0, 900}},
		{{0, 420, 0}, {0, 420, 450}, {0, 420, 900}},
	}
	for r := 0; r < ysize; r++ {
		for c := 0; c < xsize; c++ {
			if tiles[r][c] != want[r][c] {
				t.Errorf("decode[%d][%d] = %+v, want %+v", r, c, tiles[r][c], want[r][c])
			}
		}
	}
}

func TestCostZeroAtGroundTruth(t *testing.T) {
	p := &problem{
		ysize: 2, xsize: 2,
		p1:     [][]vec3{{{0, 420, 0}, {0, 420, 0}}, {{}, {}}},
		p2:     [][]vec3{{{0, 0, 450}, {}}, {{0, 0, 450}, {}}},
		score1: [][]float64{{1, 1}, {0, 0}},
		score2: [][]float64{{1, 0}, {1, 0}},
	}
	tiles := [][]vec3{
		{{0, 0, 0}, {0, 0, 450}},
		{{0, 420, 0}, {0, 420, 450}},
	}
	if got := p.cost(tiles); got != 0 {
		t.Errorf("cost at ground truth = %v, want 0", got)
	}
}

func TestCostPositiveAwayFromGroundTruth(t *testing.T) {
	p := &problem{
		ysize: 2, xsize: 2,
		p1:     [][]vec3{{{0, 420, 0}, {0, 420, 0}}, {{}, {}}},
		p2:     [][]vec3{{{0, 0, 450}, {}}, {{0, 0, 450}, {}}},
		score1: [][]float64{{1, 1}, {0, 0}},
		score2: [][]float64{{1, 0}, {1, 0}},
	}
	tiles := [][]vec3{
		{{0, 0, 0}, {0, 0, 470}},
		{{0, 400, 0}, {0, 420, 450}},
	}
	if got := p.cost(tiles); got <= 0 {
		t.Errorf("cost away from ground truth = %v, want > 0", got)
	}
}

func TestBoundsPinsOrigin(t *testing.T) {
	cfg := DefaultConfig()
	lo, hi := bounds(2, 2, cfg)
	for i := 0; i < 3; i++ {
		if lo[i] != 0 || hi[i] != 0 {
			t.Errorf("cell (0,0) bound[%d] = [%v,%v], want [0,0]", i, lo[i], hi[i])
		}
	}
	// Row 0, col 1 (east) uses East bounds' px range.
	i := (0*2 + 1) * 3
	if lo[i+2] != cfg.East.PXMin || hi[i+2] != cfg.East.PXMax {
		t.Errorf("row0 col1 px bound = [%v,%v], want east [%v,%v]", lo[i+2], hi[i+2], cfg.East.PXMin, cfg.East.PXMax)
	}
	// Row 1, col 0 (south) uses South bounds' py range.
	i = (1*2 + 0) * 3
	if lo[i+1] != cfg.South.PYMin || hi[i+1] != cfg.South.PYMax {
		t.Errorf("row1 col0 py bound = [%v,%v], want south [%v,%v]", lo[i+1], hi[i+1], cfg.South.PYMin, cfg.South.PYMax)
	}
}

func TestWarmStartZeroesRowAndColumnOrigins(t *testing.T) {
	p := &problem{
		ysize: 2, xsize: 2,
		p1: [][]vec3{{{0, 420, 0}, {0, 419, 0}}, {{}, {}}},
		p2: [][]vec3{{{0, 0, 450}, {}}, {{0, 0, 451}, {}}},
	}
	x0 := warmStart(p)
	// cell (0,0) must be zero.
	if x0[0] != 0 || x0[1] != 0 || x0[2] != 0 {
		t.Errorf("x0 cell(0,0) = %v,%v,%v, want zero", x0[0], x0[1], x0[2])
	}
	// cell (0,1) takes p2[0][0].
	if x0[4] != 0 || x0[5] != 450 {
		t.Errorf("x0 cell(0,1) py,px = %v,%v, want 0,450", x0[4], x0[5])
	}
	// cell (1,0) takes p1[0][0].
	if x0[6] != 0 || x0[7] != 420 || x0[8] != 0 {
		t.Errorf("x0 cell(1,0) = %v,%v,%v, want 0,420,0", x0[6], x0[7], x0[8])
	}
}

func TestRunConvergesOnNoiseFreeTwoByTwo(t *testing.T) {
	dir := t.TempDir()
	const ysize, xsize, nfrms = 100, 100, 5
	names := []string{
		"x_0_y_0_z_0.tstk", "x_100_y_0_z_0.tstk",
		"x_0_y_100_z_0.tstk", "x_100_y_100_z_0.tstk",
	}
	for _, n := range names {
		writeBlank(t, dir, n, ysize, xsize, nfrms)
	}
	g, err := grid.Load(dir, grid.Options{AscendingX: true, AscendingY: true})
	if err != nil {
		t.Fatalf("grid.Load: %v", err)
	}

	pairs := grid.NewTable()
	pairs.Put(grid.Pair{AName: "x_0_y_0_z_0.tstk", BName: "x_100_y_0_z_0.tstk", Axis: grid.AxisEast, DY: 20, Score: 1})
	pairs.Put(grid.Pair{AName: "x_0_y_100_z_0.tstk", BName: "x_100_y_100_z_0.tstk", Axis: grid.AxisEast, DY: 20, Score: 1})
	pairs.Put(grid.Pair{AName: "x_0_y_0_z_0.tstk", BName: "x_0_y_100_z_0.tstk", Axis: grid.AxisSouth, DY: 20, Score: 1})
	pairs.Put(grid.Pair{AName: "x_100_y_0_z_0.tstk", BName: "x_100_y_100_z_0.tstk", Axis: grid.AxisSouth, DY: 20, Score: 1})

	cfg := DefaultConfig()
	// The default pitch bounds ([400,512]) do not admit the 80px steps of
	// these 100px tiles; bound the pitch to [0,100] instead.
	cfg.East.PXMin, cfg.East.PXMax = 0, 100
	cfg.South.PYMin, cfg.South.PYMax = 0, 100
	cfg.Islands = 2
	cfg.EvolutionRounds = 1
	cfg.TrialsPerStep = 20
	result := Run(g, pairs, cfg)

	if math.IsNaN(result.Cost) || result.Cost < 0 {
		t.Fatalf("unexpected cost %v", result.Cost)
	}
	tiles := decode(result.X, g.YSize, g.XSize)
	// The warm start alone already sits at the least-squares optimum for a
	// noise-free, fully-connected 2x2 mosaic, so the champion (warm start or
	// better) must reproduce the 80px east/south steps closely.
	if got := tiles[0][1].PX; math.Abs(got-80) > 1 {
		t.Errorf("tile(0,1).PX = %v, want close to 80", got)
	}
	if got := tiles[1][0].PY; math.Abs(got-80) > 1 {
		t.Errorf("tile(1,0).PY = %v, want close to 80", got)
	}
}
