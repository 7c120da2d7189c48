// Package grid implements the nominal-coordinate tile matrix (spec §4.D):
// parsing file names into stage coordinates, normalizing them into a dense
// (row, col) mosaic, and enumerating N/S/E/W neighbor pairs for the pair
// aligner to process.
package grid

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	nameRe    = regexp.MustCompile(`x_(\d+).*y_(\d+).*z_(\d+)`)
	compactRe = regexp.MustCompile(`^(\d+)_(\d+)_(\d+)`)
)

// ParseName extracts the nominal (x, y, z) stage coordinates encoded in a
// tile file name. It tries the verbose `..._x_###_y_###_z_###...` form
// first, then falls back to a bare `###_###_###` prefix.
func ParseName(name string) (x, y, z int, err error) {
	if m := nameRe.FindStringSubmatch(name); m != nil {
		return atoi(m[1]), atoi(m[2]), atoi(m[3]), nil
	}
	if m := compactRe.FindStringSubmatch(name); m != nil {
		return atoi(m[1]), atoi(m[2]), atoi(m[3]), nil
	}
	return 0, 0, 0, fmt.Errorf("grid: invalid tile name %q", name)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Tile is a single mosaic position: a file name, its nominal stage
// coordinates, its per-tile frame geometry, and (once computed) its
// absolute position in the common coordinate frame.
type Tile struct {
	Name string

	// Nominal is the (X, Y, Z) stage coordinate, normalized to start at 0.
	Nominal [3]int

	// Row, Col are this tile's indices in the dense mosaic, derived from
	// the unique Y and X nominal values respectively.
	Row, Col int

	NFrms, YSize, XSize int

	// Absolute holds the tile's computed (Xs, Ys, Zs) position, valid
	// once §E or §F has run.
	Absolute    [3]int
	AbsoluteSet bool
}

// XsEnd, YsEnd, ZsEnd are the absolute position plus the tile's own extent
// along each axis.
func (t *Tile) XsEnd() int { return t.Absolute[0] + t.XSize }
func (t *Tile) YsEnd() int { return t.Absolute[1] + t.YSize }
func (t *Tile) ZsEnd() int { return t.Absolute[2] + t.NFrms }
