// Package position implements the initial position estimator (spec §4.E):
// a breadth-first traversal of the tile adjacency graph that assigns every
// tile a first absolute position. The global optimizer (internal/optimize)
// does not read these positions; it builds its own warm start from the
// pair shifts.
package position

import (
	"log"
	"math"

	"github.com/pspoerri/tilestitch/internal/grid"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// Estimate computes an initial absolute position for every tile in g by
// breadth-first traversal from the tile at nominal (0,0,0), averaging the
// positions implied by every recorded pair linking the tile to a neighbor
// whose own absolute position is already known (spec §4.E): a pair in which
// the tile is "b" adds its ShiftVector to the neighbor's position, one in
// which the tile is "a" subtracts it. Tiles unreachable from the root
// (a disconnected mosaic) fall back to their nominal coordinates and are
// logged (spec §7 "Disconnected graph").
func Estimate(g *grid.Grid, pairs *grid.Table) error {
	tiles := g.Tiles()
	byName := make(map[string]*grid.Tile, len(tiles))
	id := make(map[string]int64, len(tiles))
	name := make(map[int64]string, len(tiles))
	for i, t := range tiles {
		byName[t.Name] = t
		id[t.Name] = int64(i)
		name[int64(i)] = t.Name
	}

	graphG := simple.NewWeightedUndirectedGraph(0, 0)
	for i := range tiles {
		graphG.AddNode(simple.Node(int64(i)))
	}
	for _, p := range pairs.All() {
		u, okU := id[p.AName]
		v, okV := id[p.BName]
		if !okU || !okV {
			continue
		}
		weight := 1 - p.Score
		graphG.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(u), T: simple.Node(v), W: weight})
	}

	var root *grid.Tile
	for _, t := range tiles {
		if t.Nominal == [3]int{0, 0, 0} {
			root = t
			break
		}
	}
	if root == nil {
		return errNoOrigin
	}

	root.Absolute = [3]int{0, 0, 0}
	root.AbsoluteSet = true

	type edge struct{ u, v int64 }
	var order []edge
	bfs := traverse.BreadthFirst{
		Visit: func(u, v graph.Node) {
			order = append(order, edge{u.ID(), v.ID()})
		},
	}
	bfs.Walk(graphG, simple.Node(id[root.Name]), func(graph.Node, int) bool { return false })

	for _, e := range order {
		child := byName[name[e.v]]
		if child.AbsoluteSet {
			continue
		}

		var sumX, sumY, sumZ float64
		var n int
		for _, p := range pairs.IncomingTo(child.Name) {
			parent, ok := byName[p.AName]
			if !ok || !parent.AbsoluteSet {
				continue
			}
			sv := grid.Shift(p, parent.YSize, parent.XSize)
			sumX += float64(parent.Absolute[0] + sv.PX)
			sumY += float64(parent.Absolute[1] + sv.PY)
			sumZ += float64(parent.Absolute[2] + sv.PZ)
			n++
		}
		for _, axis := range []grid.Axis{grid.AxisSouth, grid.AxisEast} {
			p, ok := pairs.Outgoing(child.Name, axis)
			if !ok {
				continue
			}
			nb, ok := byName[p.BName]
			if !ok || !nb.AbsoluteSet {
				continue
			}
			sv := grid.Shift(p, child.YSize, child.XSize)
			sumX += float64(nb.Absolute[0] - sv.PX)
			sumY += float64(nb.Absolute[1] - sv.PY)
			sumZ += float64(nb.Absolute[2] - sv.PZ)
			n++
		}
		if n == 0 {
			continue
		}
		child.Absolute = [3]int{
			roundInt(sumX / float64(n)),
			roundInt(sumY / float64(n)),
			roundInt(sumZ / float64(n)),
		}
		child.AbsoluteSet = true
	}

	var reached []*grid.Tile
	var unreached []string
	for _, t := range tiles {
		if t.AbsoluteSet {
			reached = append(reached, t)
		} else {
			unreached = append(unreached, t.Name)
		}
	}
	if len(unreached) > 0 {
		log.Printf("position: %d tile(s) unreachable from origin, using nominal coordinates: %v", len(unreached), unreached)
	}

	normalize(reached)

	for _, t := range tiles {
		if !t.AbsoluteSet {
			t.Absolute = t.Nominal
			t.AbsoluteSet = true
		}
	}
	return nil
}

// normalize subtracts the per-axis minimum absolute position, over the
// BFS-reached tiles only, so the reached mosaic starts at the origin
// (spec §4.E post-process). Unreached tiles keep their nominal coordinates
// verbatim (spec §7 "Disconnected graph"), outside this normalization.
func normalize(tiles []*grid.Tile) {
	if len(tiles) == 0 {
		return
	}
	min := tiles[0].Absolute
	for _, t := range tiles {
		for axis := 0; axis < 3; axis++ {
			if t.Absolute[axis] < min[axis] {
				min[axis] = t.Absolute[axis]
			}
		}
	}
	for _, t := range tiles {
		for axis := 0; axis < 3; axis++ {
			t.Absolute[axis] -= min[axis]
		}
	}
}

func roundInt(f float64) int {
	return int(math.Round(f))
}

type positionError string

func (e positionError) Error() string { return string(e) }

const errNoOrigin = positionError("position: no tile at nominal (0,0,0)")
