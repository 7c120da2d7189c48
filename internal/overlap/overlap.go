// Package overlap computes the eight-directional overlap geometry between
// a tile and its neighbors (spec §4.G), used downstream for image fusion.
package overlap

import "github.com/pspoerri/tilestitch/internal/grid"

// Direction names one of the eight neighbor directions.
type Direction int

const (
	N Direction = iota
	S
	E
	W
	NE
	NW
	SE
	SW
)

var directionNames = map[Direction]string{
	N: "n", S: "s", E: "e", W: "w",
	NE: "ne", NW: "nw", SE: "se", SW: "sw",
}

func (d Direction) String() string { return directionNames[d] }

// Box is an overlap region in tile-local coordinates. All six fields are
// zero when there is no usable overlap (spec §4.G).
type Box struct {
	ZFrom, ZTo int
	YFrom, YTo int
	XFrom, XTo int
}

// Lookup resolves a tile's neighbor in a given direction via the Pair index
// (spec §4.G: "look up the neighbor ... via the Pair index"), chaining two
// lookups for diagonals, exactly as the reference's comp_diff/KeyError
// fallback does. A pair that was never recorded (e.g. skipped for an
// underflowing search window) yields a missing neighbor here, not a
// grid-adjacency guess.
func Lookup(g *grid.Grid, pairs *grid.Table, t *grid.Tile, d Direction) (*grid.Tile, bool) {
	name, ok := lookupName(pairs, t.Name, d)
	if !ok {
		return nil, false
	}
	return g.Tile(name)
}

// lookupName resolves the neighbor tile's file name via pairs, without
// needing the Grid at all for orthogonal directions.
func lookupName(pairs *grid.Table, name string, d Direction) (string, bool) {
	switch d {
	case N:
		p, ok := pairs.Incoming(name, grid.AxisSouth)
		return p.AName, ok
	case S:
		p, ok := pairs.Outgoing(name, grid.AxisSouth)
		return p.BName, ok
	case E:
		p, ok := pairs.Outgoing(name, grid.AxisEast)
		return p.BName, ok
	case W:
		p, ok := pairs.Incoming(name, grid.AxisEast)
		return p.AName, ok
	case NW:
		if w, ok := lookupName(pairs, name, W); ok {
			return lookupName(pairs, w, N)
		}
	case NE:
		if e, ok := lookupName(pairs, name, E); ok {
			return lookupName(pairs, e, N)
		}
	case SW:
		if w, ok := lookupName(pairs, name, W); ok {
			return lookupName(pairs, w, S)
		}
	case SE:
		if e, ok := lookupName(pairs, name, E); ok {
			return lookupName(pairs, e, S)
		}
	}
	return "", false
}

// Compute returns the overlap Box of t with its neighbor in direction d, in
// t-local coordinates. A missing pair record or a non-overlapping bounding
// box on any axis yields the all-zero Box (spec §4.G).
func Compute(g *grid.Grid, pairs *grid.Table, t *grid.Tile, d Direction) Box {
	n, ok := Lookup(g, pairs, t, d)
	if !ok {
		return Box{}
	}

	zFrom, zTo := axisOverlap(t.Absolute[2], t.ZsEnd(), n.Absolute[2], n.ZsEnd())
	yFrom, yTo := axisOverlap(t.Absolute[1], t.YsEnd(), n.Absolute[1], n.YsEnd())
	xFrom, xTo := axisOverlap(t.Absolute[0], t.XsEnd(), n.Absolute[0], n.XsEnd())

	if zFrom > zTo || yFrom > yTo || xFrom > xTo {
		return Box{}
	}
	return Box{
		ZFrom: zFrom - t.Absolute[2], ZTo: zTo - t.Absolute[2],
		YFrom: yFrom - t.Absolute[1], YTo: yTo - t.Absolute[1],
		XFrom: xFrom - t.Absolute[0], XTo: xTo - t.Absolute[0],
	}
}

func axisOverlap(tFrom, tTo, nFrom, nTo int) (from, to int) {
	return max(tFrom, nFrom), min(tTo, nTo)
}

// All computes the overlap Box for every one of a tile's 8 directions.
func All(g *grid.Grid, pairs *grid.Table, t *grid.Tile) map[Direction]Box {
	out := make(map[Direction]Box, 8)
	for _, d := range []Direction{N, S, E, W, NE, NW, SE, SW} {
		out[d] = Compute(g, pairs, t, d)
	}
	return out
}
