package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pspoerri/tilestitch/internal/frame"
	"github.com/pspoerri/tilestitch/internal/grid"
)

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stitch.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadMissingFileReturnsEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yaml")
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.HasPositions() {
		t.Error("empty document should not report HasPositions")
	}
}

func TestLoadParsesXcorrAndPositions(t *testing.T) {
	path := writeFixture(t, `xcorr-options:
  ascending_tiles_x: true
  ascending_tiles_y: false
xcorr:
  - aname: x_0_y_0_z_0.tstk
    bname: x_100_y_0_z_0.tstk
    axis: 2
    dx: 0
    dy: 20
    dz: 0
    score: 0.98
absolute_positions:
  - filename: x_0_y_0_z_0.tstk
    Xs: 0
    Ys: 0
    Zs: 0
    Xs_end: 100
    Ys_end: 100
    Zs_end: 5
`)
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !doc.XcorrOptions.AscendingTilesX || doc.XcorrOptions.AscendingTilesY {
		t.Errorf("XcorrOptions = %+v", doc.XcorrOptions)
	}
	if len(doc.Xcorr) != 1 || doc.Xcorr[0].Axis != 2 || doc.Xcorr[0].DY != 20 {
		t.Errorf("Xcorr = %+v", doc.Xcorr)
	}
	if !doc.HasPositions() {
		t.Error("expected HasPositions to be true")
	}
	if doc.AbsolutePositions[0].XsEnd != 100 {
		t.Errorf("Xs_end = %d, want 100", doc.AbsolutePositions[0].XsEnd)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stitch.yaml")
	doc := &Document{
		XcorrOptions: XcorrOptions{AscendingTilesX: true, AscendingTilesY: true},
		Xcorr: []XcorrRecord{
			{AName: "a.tstk", BName: "b.tstk", Axis: 1, DY: 20, Score: 0.9},
		},
	}
	if err := Save(path, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.HasPositions() {
		t.Error("document without optimization should not report HasPositions")
	}
	if len(reloaded.Xcorr) != 1 || reloaded.Xcorr[0].AName != "a.tstk" {
		t.Errorf("Xcorr round-trip mismatch: %+v", reloaded.Xcorr)
	}
}

func TestTableRoundTrip(t *testing.T) {
	table := grid.NewTable()
	table.Put(grid.Pair{AName: "a.tstk", BName: "b.tstk", Axis: grid.AxisEast, DY: 15, Score: 0.8})

	records := FromTable(table)
	restored := ToTable(records)

	p, ok := restored.Get("a.tstk", "b.tstk", grid.AxisEast)
	if !ok {
		t.Fatal("restored table missing pair")
	}
	if p.DY != 15 || p.Score != 0.8 {
		t.Errorf("restored pair = %+v", p)
	}
}

func TestApplyToRejectsUnknownTile(t *testing.T) {
	dir := t.TempDir()
	plane := make([]float64, 10*10)
	frames := [][]float64{plane, plane}
	if err := frame.Write(filepath.Join(dir, "x_0_y_0_z_0.tstk"), 10, 10, [][][]float64{frames}); err != nil {
		t.Fatalf("writing fixture tile: %v", err)
	}
	g, err := grid.Load(dir, grid.Options{AscendingX: true, AscendingY: true})
	if err != nil {
		t.Fatalf("grid.Load: %v", err)
	}
	err = ApplyTo(g, []AbsolutePosition{{Filename: "missing.tstk"}})
	if err == nil {
		t.Fatal("expected error for unknown tile filename")
	}
}
