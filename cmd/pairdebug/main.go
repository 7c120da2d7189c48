package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pspoerri/tilestitch/internal/align"
	"github.com/pspoerri/tilestitch/internal/grid"
)

func main() {
	fs := flag.NewFlagSet("pairdebug", flag.ExitOnError)
	overlap := fs.Int("overlap", 20, "Nominal overlap between adjacent tiles, in pixels")
	maxShiftZ := fs.Int("max-shift-z", 10, "Maximum Z search radius")
	maxShiftX := fs.Int("max-shift-x", 30, "Maximum lateral search margin")
	axisName := fs.String("axis", "south", "Stitching axis: south or east")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pairdebug [flags] <tile-directory> <a-tile> <b-tile>\n")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	if fs.NArg() != 3 {
		fs.Usage()
		os.Exit(1)
	}
	dir, aName, bName := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	var axis grid.Axis
	switch *axisName {
	case "south":
		axis = grid.AxisSouth
	case "east":
		axis = grid.AxisEast
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown axis %q (want south or east)\n", *axisName)
		os.Exit(1)
	}

	g, err := grid.Load(dir, grid.Options{AscendingX: true, AscendingY: true, Concurrency: 1})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading grid: %v\n", err)
		os.Exit(1)
	}

	a, ok := g.Tile(aName)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: tile %q not found\n", aName)
		os.Exit(1)
	}
	b, ok := g.Tile(bName)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: tile %q not found\n", bName)
		os.Exit(1)
	}

	cfg := align.Config{Overlap: *overlap, MaxShiftZ: *maxShiftZ, MaxShiftX: *maxShiftX}
	job := grid.NeighborJob{A: a, B: b, Axis: axis}

	pair, ok, err := align.Align(dir, job, a.NFrms/2, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Println("Pair skipped: search window underflows the tile bounds")
		return
	}

	fmt.Printf("a=%s b=%s axis=%v\n", pair.AName, pair.BName, pair.Axis)
	fmt.Printf("dz=%d dy=%d dx=%d score=%f\n", pair.DZ, pair.DY, pair.DX, pair.Score)

	sv := grid.Shift(pair, a.YSize, a.XSize)
	fmt.Printf("shift vector: pz=%d py=%d px=%d\n", sv.PZ, sv.PY, sv.PX)
}
