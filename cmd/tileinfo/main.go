package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pspoerri/tilestitch/internal/grid"
)

func main() {
	fs := flag.NewFlagSet("tileinfo", flag.ExitOnError)
	ascendingX := fs.Bool("ascending-x", true, "Stage X axis increases with mosaic column index")
	ascendingY := fs.Bool("ascending-y", true, "Stage Y axis increases with mosaic row index")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tileinfo [flags] <tile-directory>\n")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	dir := fs.Arg(0)

	g, err := grid.Load(dir, grid.Options{AscendingX: *ascendingX, AscendingY: *ascendingY, Concurrency: 1})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Directory: %s\n", dir)
	fmt.Printf("Mosaic shape: %d rows x %d cols\n", g.YSize, g.XSize)
	fmt.Printf("Tiles: %d\n", len(g.Tiles()))

	for _, slice := range g.Slices() {
		fmt.Printf("\nZ-slice (%d tile(s)):\n", len(slice))
		for _, t := range slice {
			fmt.Printf("  %-24s size=%dx%dx%d absolute=%v\n", t.Name, t.NFrms, t.YSize, t.XSize, t.Absolute)
		}
	}

	for _, t := range g.Tiles() {
		if s, ok := g.South(t); ok {
			fmt.Printf("south(%s) = %s\n", t.Name, s.Name)
		}
		if e, ok := g.East(t); ok {
			fmt.Printf("east(%s) = %s\n", t.Name, e.Name)
		}
	}
}
