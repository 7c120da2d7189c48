package grid

import "sync"

// Axis identifies the stitching direction of a Pair.
type Axis int

const (
	// AxisSouth means b is the south neighbor of a (stitching along Y).
	AxisSouth Axis = 1
	// AxisEast means b is the east neighbor of a (stitching along X).
	AxisEast Axis = 2
)

// Pair is the directed measurement produced by the pair aligner (spec §4.C):
// the raw NCC peak offset (dz, dy, dx) within the search window, and its
// confidence score.
type Pair struct {
	AName, BName string
	Axis         Axis
	DZ, DY, DX   int
	Score        float64
}

// ShiftVector is a Pair converted into tile-frame-relative form (spec §3):
// for axis=1, px=dx, py=ysize-dy, pz=dz; for axis=2, the result is rotated
// so axis=2 shifts live in the same (Z,Y,X) frame as axis=1 shifts.
// ysize/xsize are the dimensions of the pair's "a" tile.
type ShiftVector struct {
	PZ, PY, PX int
}

// Shift derives the ShiftVector for p, given the YSize/XSize of tile a.
func Shift(p Pair, aYSize, aXSize int) ShiftVector {
	switch p.Axis {
	case AxisSouth:
		return ShiftVector{PZ: p.DZ, PY: aYSize - p.DY, PX: p.DX}
	case AxisEast:
		return ShiftVector{PZ: p.DZ, PY: -p.DX, PX: aXSize - p.DY}
	default:
		return ShiftVector{}
	}
}

// Table is a concurrent-safe, append-only-during-ingestion store of Pair
// records keyed by (aname, bname, axis), modeled on the teacher's
// map-plus-mutex tile store (internal/tile's disk-backed image cache). It
// also indexes by (aname, axis) and (bname, axis) so a tile's neighbor along
// an axis can be resolved by name alone, as the pair index is looked up for
// overlap geometry (spec §4.G) and position estimation.
type Table struct {
	mu       sync.RWMutex
	pairs    map[pairKey]Pair
	outgoing map[axisKey]Pair
	incoming map[axisKey]Pair
}

type pairKey struct {
	AName, BName string
	Axis         Axis
}

type axisKey struct {
	Name string
	Axis Axis
}

// NewTable returns an empty pair table.
func NewTable() *Table {
	return &Table{
		pairs:    make(map[pairKey]Pair),
		outgoing: make(map[axisKey]Pair),
		incoming: make(map[axisKey]Pair),
	}
}

// Put records a Pair. Safe for concurrent use by multiple aligner workers.
func (t *Table) Put(p Pair) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pairs[pairKey{p.AName, p.BName, p.Axis}] = p
	t.outgoing[axisKey{p.AName, p.Axis}] = p
	t.incoming[axisKey{p.BName, p.Axis}] = p
}

// Get looks up the Pair from aname to bname along axis, if any.
func (t *Table) Get(aname, bname string, axis Axis) (Pair, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.pairs[pairKey{aname, bname, axis}]
	return p, ok
}

// Outgoing looks up the Pair whose AName is aname along axis, if any: the
// tile axis points toward (spec §4.G "south"/"east" neighbor lookups).
func (t *Table) Outgoing(aname string, axis Axis) (Pair, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.outgoing[axisKey{aname, axis}]
	return p, ok
}

// Incoming looks up the Pair whose BName is bname along axis, if any: the
// tile axis points back from (spec §4.G "north"/"west" neighbor lookups).
func (t *Table) Incoming(bname string, axis Axis) (Pair, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.incoming[axisKey{bname, axis}]
	return p, ok
}

// All returns every recorded Pair, in no particular order. Callers that
// need determinism (e.g. before persisting) must sort the result.
func (t *Table) All() []Pair {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Pair, 0, len(t.pairs))
	for _, p := range t.pairs {
		out = append(out, p)
	}
	return out
}

// IncomingTo returns every recorded Pair whose BName matches bname, in no
// particular order.
func (t *Table) IncomingTo(bname string) []Pair {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Pair
	for _, p := range t.pairs {
		if p.BName == bname {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of recorded pairs.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.pairs)
}
