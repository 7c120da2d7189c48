package grid

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pspoerri/tilestitch/internal/frame"
)

// Options controls how a directory is ingested into a Grid.
type Options struct {
	// AscendingX, AscendingY report whether the stage axes increase in the
	// same direction as the mosaic's column/row indices. When false, the
	// corresponding axis is reflected about its max before normalization.
	AscendingX, AscendingY bool

	// Concurrency bounds the number of directory-entry opens in flight.
	Concurrency int
}

// Grid is the nominal-coordinate tile matrix (spec §4.D): a dense
// (row, col) mosaic of Tiles, indexed both by name and by position.
type Grid struct {
	YSize, XSize int
	tiles        map[string]*Tile
	byPos        map[[2]int]*Tile // [row][col] -> tile
}

// Load reads the entries directly inside dir, opens every file entry via
// the frame-source adapter, and builds a normalized Grid. Subdirectories
// are skipped, not descended into. Entries whose name
// doesn't parse are skipped with a logged error (spec §7 "Invalid tile
// name"); entries that fail to open are skipped with a logged error and
// dropped from the mosaic (spec §7 "Frame read failure").
func Load(dir string, opts Options) (*Grid, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("grid: reading directory %s: %w", dir, err)
	}

	conc := opts.Concurrency
	if conc <= 0 {
		conc = 4
	}

	type result struct {
		tile *Tile
		err  error
	}

	jobs := make(chan os.DirEntry, len(entries))
	results := make(chan result, len(entries))
	var wg sync.WaitGroup

	for w := 0; w < conc; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ent := range jobs {
				t, err := openTile(dir, ent.Name())
				results <- result{t, err}
			}
		}()
	}
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		jobs <- ent
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var tiles []*Tile
	for r := range results {
		if r.err != nil {
			log.Printf("grid: skipping entry: %v", r.err)
			continue
		}
		tiles = append(tiles, r.tile)
	}

	if len(tiles) == 0 {
		return nil, fmt.Errorf("grid: no valid tiles found in %s", dir)
	}

	return build(tiles, opts)
}

func openTile(dir, name string) (*Tile, error) {
	x, y, z, err := ParseName(name)
	if err != nil {
		return nil, err
	}
	src, err := frame.Open(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("grid: opening %s: %w", name, err)
	}
	defer src.Close()

	return &Tile{
		Name:    name,
		Nominal: [3]int{x, y, z},
		NFrms:   src.NFrms(),
		YSize:   src.YSize(),
		XSize:   src.XSize(),
	}, nil
}

// build normalizes nominal coordinates, checks per-tile geometry
// consistency per Z-slice, and derives the dense row/col mosaic. Distinct
// Z-slices are stitched independently (spec §4.D), so only tiles within the
// same slice need matching geometry; a mosaic whose slices each have their
// own uniform tile size must not abort.
func build(tiles []*Tile, opts Options) (*Grid, error) {
	for _, slice := range zGroups(tiles) {
		xsize, ysize, nfrms := slice[0].XSize, slice[0].YSize, slice[0].NFrms
		for _, t := range slice {
			if t.XSize != xsize || t.YSize != ysize || t.NFrms != nfrms {
				return nil, fmt.Errorf("grid: inconsistent tile geometry within Z-slice: %s is %dx%dx%d, expected %dx%dx%d",
					t.Name, t.NFrms, t.YSize, t.XSize, nfrms, ysize, xsize)
			}
		}
	}

	minX, minY, minZ := tiles[0].Nominal[0], tiles[0].Nominal[1], tiles[0].Nominal[2]
	maxX, maxY := tiles[0].Nominal[0], tiles[0].Nominal[1]
	for _, t := range tiles {
		if t.Nominal[0] < minX {
			minX = t.Nominal[0]
		}
		if t.Nominal[1] < minY {
			minY = t.Nominal[1]
		}
		if t.Nominal[2] < minZ {
			minZ = t.Nominal[2]
		}
		if t.Nominal[0] > maxX {
			maxX = t.Nominal[0]
		}
		if t.Nominal[1] > maxY {
			maxY = t.Nominal[1]
		}
	}

	if !opts.AscendingX {
		for _, t := range tiles {
			t.Nominal[0] = abs(t.Nominal[0] - maxX)
		}
		minX, maxX = 0, abs(minX-maxX)
		for _, t := range tiles {
			if t.Nominal[0] < minX {
				minX = t.Nominal[0]
			}
		}
	}
	if !opts.AscendingY {
		for _, t := range tiles {
			t.Nominal[1] = abs(t.Nominal[1] - maxY)
		}
		minY = 0
		for _, t := range tiles {
			if t.Nominal[1] < minY {
				minY = t.Nominal[1]
			}
		}
	}

	for _, t := range tiles {
		t.Nominal[0] -= minX
		t.Nominal[1] -= minY
		t.Nominal[2] -= minZ
	}

	xs := uniqueSorted(tiles, func(t *Tile) int { return t.Nominal[0] })
	ys := uniqueSorted(tiles, func(t *Tile) int { return t.Nominal[1] })
	colOf := indexOf(xs)
	rowOf := indexOf(ys)

	g := &Grid{
		YSize: len(ys),
		XSize: len(xs),
		tiles: make(map[string]*Tile, len(tiles)),
		byPos: make(map[[2]int]*Tile, len(tiles)),
	}
	for _, t := range tiles {
		t.Row = rowOf[t.Nominal[1]]
		t.Col = colOf[t.Nominal[0]]
		pos := [2]int{t.Row, t.Col}
		g.tiles[t.Name] = t
		// Multiple tiles can share a mosaic position when the run has
		// several Z-stacked slices at the same (X, Y) (spec §4.D
		// "Slices"). Neighbor enumeration keeps only the first tile seen
		// at each position; Tiles()/Slices() still see every tile.
		if _, dup := g.byPos[pos]; !dup {
			g.byPos[pos] = t
		}
	}

	return g, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func uniqueSorted(tiles []*Tile, key func(*Tile) int) []int {
	seen := make(map[int]struct{})
	for _, t := range tiles {
		seen[key(t)] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func indexOf(vals []int) map[int]int {
	m := make(map[int]int, len(vals))
	for i, v := range vals {
		m[v] = i
	}
	return m
}

// Tile looks up a tile by name.
func (g *Grid) Tile(name string) (*Tile, bool) {
	t, ok := g.tiles[name]
	return t, ok
}

// At looks up a tile by its (row, col) mosaic position.
func (g *Grid) At(row, col int) (*Tile, bool) {
	t, ok := g.byPos[[2]int{row, col}]
	return t, ok
}

// Tiles returns all tiles, in no particular order.
func (g *Grid) Tiles() []*Tile {
	out := make([]*Tile, 0, len(g.tiles))
	for _, t := range g.tiles {
		out = append(out, t)
	}
	return out
}

// South returns the tile directly south of t (same column, next row), if any.
func (g *Grid) South(t *Tile) (*Tile, bool) {
	return g.At(t.Row+1, t.Col)
}

// East returns the tile directly east of t (same row, next column), if any.
func (g *Grid) East(t *Tile) (*Tile, bool) {
	return g.At(t.Row, t.Col+1)
}

// North returns the tile directly north of t, if any.
func (g *Grid) North(t *Tile) (*Tile, bool) {
	return g.At(t.Row-1, t.Col)
}

// West returns the tile directly west of t, if any.
func (g *Grid) West(t *Tile) (*Tile, bool) {
	return g.At(t.Row, t.Col-1)
}

// NeighborPairs enumerates the (a, b, axis) jobs the pair aligner must run:
// every tile's south and east neighbor, when present.
func (g *Grid) NeighborPairs() []NeighborJob {
	var jobs []NeighborJob
	for _, t := range g.Tiles() {
		if s, ok := g.South(t); ok {
			jobs = append(jobs, NeighborJob{A: t, B: s, Axis: AxisSouth})
		}
		if e, ok := g.East(t); ok {
			jobs = append(jobs, NeighborJob{A: t, B: e, Axis: AxisEast})
		}
	}
	return jobs
}

// NeighborJob names one pair-alignment task.
type NeighborJob struct {
	A, B *Tile
	Axis Axis
}

// Slices partitions the grid's tiles into connected components whose
// Z-ranges overlap transitively (spec §4.D): two tiles are linked if their
// [Z, Z+NFrms) ranges intersect. Each returned slice can be stitched
// independently.
func (g *Grid) Slices() [][]*Tile {
	return zGroups(g.Tiles())
}

// zGroups partitions tiles into connected components whose [Z, Z+NFrms)
// ranges overlap transitively, via union-find over pairwise Z-overlap.
func zGroups(tiles []*Tile) [][]*Tile {
	n := len(tiles)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri != rj {
			parent[ri] = rj
		}
	}

	zOverlap := func(a, b *Tile) bool {
		aFrom, aTo := a.Nominal[2], a.Nominal[2]+a.NFrms
		bFrom, bTo := b.Nominal[2], b.Nominal[2]+b.NFrms
		return aFrom < bTo && bFrom < aTo
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if zOverlap(tiles[i], tiles[j]) {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]*Tile)
	for i, t := range tiles {
		root := find(i)
		groups[root] = append(groups[root], t)
	}

	out := make([][]*Tile, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	return out
}
