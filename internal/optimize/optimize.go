// Package optimize implements the global optimizer (spec §4.F): a
// least-squares objective over tile displacements, solved by simulated
// annealing across several independent islands, all started from a warm
// start built directly from the recorded pair shifts.
package optimize

import (
	"math"
	"math/rand"
	"sync"

	"github.com/pspoerri/tilestitch/internal/grid"
)

// AxisBounds are the per-cell [min, max] bounds for one (pz, py, px)
// component. The source system hard-codes these to its own microscope's
// tile pitch (spec §4.F note); callers must supply values matching their
// own stage geometry.
type AxisBounds struct {
	PZMin, PZMax float64
	PYMin, PYMax float64
	PXMin, PXMax float64
}

// Config holds the optimizer's tunables.
type Config struct {
	East  AxisBounds
	South AxisBounds

	Ts, Tf           float64
	NTempSteps       int
	Islands          int
	EvolutionRounds  int
	TrialsPerStep    int
	Seed             int64
}

// DefaultConfig returns the bounds and SA schedule from spec §4.F, with the
// tile-pitch bounds set to the reference system's defaults. Callers running
// against a different microscope must override East/South.
func DefaultConfig() Config {
	return Config{
		East:            AxisBounds{PZMin: -10, PZMax: 10, PYMin: -30, PYMax: 30, PXMin: 400, PXMax: 512},
		South:           AxisBounds{PZMin: -10, PZMax: 10, PYMin: 400, PYMax: 512, PXMin: -30, PXMax: 30},
		Ts:              10.0,
		Tf:              1e-5,
		NTempSteps:      10,
		Islands:         8,
		EvolutionRounds: 4,
		TrialsPerStep:   200,
		Seed:            1,
	}
}

// vec3 is a (pz, py, px) triple.
type vec3 struct{ PZ, PY, PX float64 }

// problem holds the least-squares objective's observed data: per-(row,col)
// south shifts (axis=1) and east shifts (axis=2), with their scores.
type problem struct {
	ysize, xsize int
	p1, p2       [][]vec3
	score1, score2 [][]float64
}

// buildProblem extracts p1/score1 (south, axis=1) and p2/score2 (east,
// axis=2) from the pair table, indexed by the position of each pair's "a"
// tile (spec §4.F: p_ab_1/p_ab_2 reshaped to (ysize, xsize, 3)).
func buildProblem(g *grid.Grid, pairs *grid.Table) *problem {
	ysize, xsize := g.YSize, g.XSize
	p := &problem{
		ysize: ysize, xsize: xsize,
		p1: make([][]vec3, ysize), p2: make([][]vec3, ysize),
		score1: make([][]float64, ysize), score2: make([][]float64, ysize),
	}
	for r := 0; r < ysize; r++ {
		p.p1[r] = make([]vec3, xsize)
		p.p2[r] = make([]vec3, xsize)
		p.score1[r] = make([]float64, xsize)
		p.score2[r] = make([]float64, xsize)
	}

	for row := 0; row < ysize; row++ {
		for col := 0; col < xsize; col++ {
			t, ok := g.At(row, col)
			if !ok {
				continue
			}
			if sp, found := pairs.Get(t.Name, neighborName(g, t, grid.AxisSouth), grid.AxisSouth); found {
				p.p1[row][col] = toVec3(grid.Shift(sp, t.YSize, t.XSize))
				p.score1[row][col] = sp.Score
			}
			if ep, found := pairs.Get(t.Name, neighborName(g, t, grid.AxisEast), grid.AxisEast); found {
				p.p2[row][col] = toVec3(grid.Shift(ep, t.YSize, t.XSize))
				p.score2[row][col] = ep.Score
			}
		}
	}
	return p
}

func neighborName(g *grid.Grid, t *grid.Tile, axis grid.Axis) string {
	var n *grid.Tile
	var ok bool
	if axis == grid.AxisSouth {
		n, ok = g.South(t)
	} else {
		n, ok = g.East(t)
	}
	if !ok {
		return ""
	}
	return n.Name
}

func toVec3(sv grid.ShiftVector) vec3 {
	return vec3{PZ: float64(sv.PZ), PY: float64(sv.PY), PX: float64(sv.PX)}
}

// decode reconstructs absolute tile coordinates from the flattened decision
// vector x (spec §4.F "Reconstruction"): the first row is cumulative-summed
// across columns, then the whole grid is cumulative-summed across rows.
func decode(x []float64, ysize, xsize int) [][]vec3 {
	t := make([][]vec3, ysize)
	for r := 0; r < ysize; r++ {
		t[r] = make([]vec3, xsize)
		for c := 0; c < xsize; c++ {
			i := (r*xsize + c) * 3
			t[r][c] = vec3{PZ: x[i], PY: x[i+1], PX: x[i+2]}
		}
	}

	for c := 1; c < xsize; c++ {
		t[0][c].PZ += t[0][c-1].PZ
		t[0][c].PY += t[0][c-1].PY
		t[0][c].PX += t[0][c-1].PX
	}
	for r := 1; r < ysize; r++ {
		for c := 0; c < xsize; c++ {
			t[r][c].PZ += t[r-1][c].PZ
			t[r][c].PY += t[r-1][c].PY
			t[r][c].PX += t[r-1][c].PX
		}
	}
	return t
}

// cost evaluates the least-squares objective (spec §4.F "Objective") on the
// decoded tile coordinates, treating out-of-grid neighbor differences and
// missing-pair scores as 0.
func (p *problem) cost(tiles [][]vec3) float64 {
	var sum float64
	for r := 0; r < p.ysize; r++ {
		for c := 0; c < p.xsize; c++ {
			if c+1 < p.xsize {
				d := diff(tiles[r][c+1], tiles[r][c], p.p2[r][c])
				sum += p.score2[r][c] * normSq(d)
			}
			if r+1 < p.ysize {
				d := diff(tiles[r+1][c], tiles[r][c], p.p1[r][c])
				sum += p.score1[r][c] * normSq(d)
			}
		}
	}
	return sum
}

func diff(a, b, p vec3) vec3 {
	return vec3{PZ: a.PZ - b.PZ - p.PZ, PY: a.PY - b.PY - p.PY, PX: a.PX - b.PX - p.PX}
}

func normSq(v vec3) float64 {
	return v.PZ*v.PZ + v.PY*v.PY + v.PX*v.PX
}

// bounds returns the per-dimension [lo, hi] bounds of the flattened
// decision vector: cell (0,0) pinned to zero, the rest of row 0 uses east
// bounds, every other row uses south bounds (spec §4.F "Bounds").
func bounds(ysize, xsize int, cfg Config) (lo, hi []float64) {
	n := ysize * xsize * 3
	lo = make([]float64, n)
	hi = make([]float64, n)
	for r := 0; r < ysize; r++ {
		for c := 0; c < xsize; c++ {
			i := (r*xsize + c) * 3
			if r == 0 && c == 0 {
				lo[i], lo[i+1], lo[i+2] = 0, 0, 0
				hi[i], hi[i+1], hi[i+2] = 0, 0, 0
				continue
			}
			var b AxisBounds
			if r == 0 {
				b = cfg.East
			} else {
				b = cfg.South
			}
			lo[i], lo[i+1], lo[i+2] = b.PZMin, b.PYMin, b.PXMin
			hi[i], hi[i+1], hi[i+2] = b.PZMax, b.PYMax, b.PXMax
		}
	}
	return lo, hi
}

// warmStart derives x0 from the observed pairs (spec §4.F "Warm start").
func warmStart(p *problem) []float64 {
	x0 := make([][]vec3, p.ysize)
	for r := range x0 {
		x0[r] = make([]vec3, p.xsize)
	}
	for c := 1; c < p.xsize; c++ {
		x0[0][c] = p.p2[0][c-1]
	}
	for r := 1; r < p.ysize; r++ {
		copy(x0[r], p.p1[r-1])
	}

	flat := make([]float64, p.ysize*p.xsize*3)
	for r := 0; r < p.ysize; r++ {
		for c := 0; c < p.xsize; c++ {
			i := (r*p.xsize + c) * 3
			flat[i], flat[i+1], flat[i+2] = x0[r][c].PZ, x0[r][c].PY, x0[r][c].PX
		}
	}
	return flat
}

// Result holds the optimizer's champion decision vector and its cost.
type Result struct {
	X            []float64
	Cost         float64
	YSize, XSize int
}

// TileAbsolute is a decoded (pz, py, px) absolute position.
type TileAbsolute struct{ PZ, PY, PX float64 }

// Decode reconstructs absolute tile coordinates from a Result's champion
// decision vector (spec §4.F "Reconstruction"), exposed for callers that
// need to turn the optimizer's output into per-tile positions.
func Decode(r Result) [][]TileAbsolute {
	t := decode(r.X, r.YSize, r.XSize)
	out := make([][]TileAbsolute, r.YSize)
	for row := range out {
		out[row] = make([]TileAbsolute, r.XSize)
		for col := range out[row] {
			out[row][col] = TileAbsolute(t[row][col])
		}
	}
	return out
}

// Run solves the least-squares displacement problem with simulated
// annealing across cfg.Islands independent islands run concurrently, each
// seeded differently, evolving cfg.EvolutionRounds times (spec §4.F "Method").
// The best (lowest-cost) champion across islands and the warm start itself
// both compete; Run returns whichever is better, so a non-converging
// anneal never regresses the estimate (spec §7 "Optimizer non-convergence").
func Run(g *grid.Grid, pairs *grid.Table, cfg Config) Result {
	p := buildProblem(g, pairs)
	lo, hi := bounds(p.ysize, p.xsize, cfg)
	x0 := warmStart(p)
	clampInto(x0, lo, hi)
	warmCost := p.cost(decode(x0, p.ysize, p.xsize))

	best := Result{X: x0, Cost: warmCost, YSize: p.ysize, XSize: p.xsize}

	islands := cfg.Islands
	if islands < 1 {
		islands = 1
	}
	champions := make([]Result, islands)
	var wg sync.WaitGroup
	for island := 0; island < islands; island++ {
		wg.Add(1)
		go func(island int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(cfg.Seed + int64(island)))
			x := append([]float64(nil), x0...)
			cost := warmCost
			for round := 0; round < cfg.EvolutionRounds; round++ {
				x, cost = anneal(p, x, cost, lo, hi, cfg, rng)
			}
			champions[island] = Result{X: x, Cost: cost, YSize: p.ysize, XSize: p.xsize}
		}(island)
	}
	wg.Wait()
	for _, c := range champions {
		if c.Cost < best.Cost {
			best = c
		}
	}

	return best
}

// anneal runs one simulated-annealing generation: temperature decreases
// geometrically from Ts to Tf over NTempSteps steps, with TrialsPerStep
// Metropolis-accepted perturbations per step.
func anneal(p *problem, x []float64, cost float64, lo, hi []float64, cfg Config, rng *rand.Rand) ([]float64, float64) {
	steps := cfg.NTempSteps
	if steps < 1 {
		steps = 1
	}
	ratio := math.Pow(cfg.Tf/cfg.Ts, 1/float64(maxInt(steps-1, 1)))
	temp := cfg.Ts

	x = append([]float64(nil), x...)
	for step := 0; step < steps; step++ {
		for trial := 0; trial < cfg.TrialsPerStep; trial++ {
			i := rng.Intn(len(x))
			if lo[i] == hi[i] {
				continue
			}
			old := x[i]
			span := hi[i] - lo[i]
			x[i] = clamp(x[i]+(rng.Float64()-0.5)*span*0.2, lo[i], hi[i])

			newCost := p.cost(decode(x, p.ysize, p.xsize))
			if newCost <= cost || rng.Float64() < math.Exp((cost-newCost)/temp) {
				cost = newCost
			} else {
				x[i] = old
			}
		}
		temp *= ratio
	}
	return x, cost
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInto(x, lo, hi []float64) {
	for i := range x {
		x[i] = clamp(x[i], lo[i], hi[i])
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
