// Package persist reads and writes the pipeline's YAML state file (spec
// §6): xcorr options, the raw pair table, and the final absolute tile
// positions. The presence of absolute_positions on load lets a rerun
// short-circuit position estimation and global optimization entirely.
package persist

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pspoerri/tilestitch/internal/grid"
)

// XcorrOptions records the mosaic orientation used to build the tile grid.
type XcorrOptions struct {
	AscendingTilesX bool `yaml:"ascending_tiles_x"`
	AscendingTilesY bool `yaml:"ascending_tiles_y"`
}

// XcorrRecord is one pair measurement (spec §6 "xcorr").
type XcorrRecord struct {
	AName string  `yaml:"aname"`
	BName string  `yaml:"bname"`
	Axis  int     `yaml:"axis"`
	DX    int     `yaml:"dx"`
	DY    int     `yaml:"dy"`
	DZ    int     `yaml:"dz"`
	Score float64 `yaml:"score"`
}

// AbsolutePosition is one tile's final placement (spec §6
// "absolute_positions").
type AbsolutePosition struct {
	Filename string `yaml:"filename"`
	Xs       int    `yaml:"Xs"`
	Ys       int    `yaml:"Ys"`
	Zs       int    `yaml:"Zs"`
	XsEnd    int    `yaml:"Xs_end"`
	YsEnd    int    `yaml:"Ys_end"`
	ZsEnd    int    `yaml:"Zs_end"`
}

// Document is the full YAML document written/read at a run's persistence
// path. AbsolutePositions is nil until global optimization has run once.
type Document struct {
	XcorrOptions      XcorrOptions       `yaml:"xcorr-options"`
	Xcorr             []XcorrRecord      `yaml:"xcorr"`
	AbsolutePositions []AbsolutePosition `yaml:"absolute_positions,omitempty"`
}

// Load reads a Document from path. A missing file is not an error; it
// returns a zero Document so a first run can proceed from scratch.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("persist: reading %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("persist: parsing %s: %w", path, err)
	}
	return &doc, nil
}

// Save writes doc to path as YAML, overwriting any existing file.
func Save(path string, doc *Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("persist: marshaling %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("persist: writing %s: %w", path, err)
	}
	return nil
}

// HasPositions reports whether doc already carries a completed absolute
// position table, letting the pipeline skip position estimation and global
// optimization on a rerun (spec §6).
func (d *Document) HasPositions() bool {
	return len(d.AbsolutePositions) > 0
}

// FromTable converts a pair table into XcorrRecords for persistence.
func FromTable(t *grid.Table) []XcorrRecord {
	pairs := t.All()
	out := make([]XcorrRecord, len(pairs))
	for i, p := range pairs {
		out[i] = XcorrRecord{
			AName: p.AName, BName: p.BName, Axis: int(p.Axis),
			DX: p.DX, DY: p.DY, DZ: p.DZ, Score: p.Score,
		}
	}
	return out
}

// ToTable rebuilds a pair table from persisted xcorr records.
func ToTable(records []XcorrRecord) *grid.Table {
	t := grid.NewTable()
	for _, r := range records {
		t.Put(grid.Pair{
			AName: r.AName, BName: r.BName, Axis: grid.Axis(r.Axis),
			DX: r.DX, DY: r.DY, DZ: r.DZ, Score: r.Score,
		})
	}
	return t
}

// FromGrid converts a grid's tile absolute positions into AbsolutePosition
// records for persistence.
func FromGrid(g *grid.Grid) []AbsolutePosition {
	tiles := g.Tiles()
	out := make([]AbsolutePosition, len(tiles))
	for i, t := range tiles {
		out[i] = AbsolutePosition{
			Filename: t.Name,
			Xs:       t.Absolute[0], Ys: t.Absolute[1], Zs: t.Absolute[2],
			XsEnd: t.XsEnd(), YsEnd: t.YsEnd(), ZsEnd: t.ZsEnd(),
		}
	}
	return out
}

// ApplyTo writes persisted absolute positions back onto a grid's tiles,
// used when a rerun short-circuits §E/§F (spec §6).
func ApplyTo(g *grid.Grid, positions []AbsolutePosition) error {
	for _, p := range positions {
		t, ok := g.Tile(p.Filename)
		if !ok {
			return fmt.Errorf("persist: absolute_positions references unknown tile %q", p.Filename)
		}
		t.Absolute = [3]int{p.Xs, p.Ys, p.Zs}
		t.AbsoluteSet = true
	}
	return nil
}
