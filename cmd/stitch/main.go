package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/pspoerri/tilestitch/internal/config"
	"github.com/pspoerri/tilestitch/internal/pipeline"
	"github.com/pspoerri/tilestitch/internal/preview"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	fs := flag.NewFlagSet("stitch", flag.ExitOnError)
	cfg := config.RegisterFlags(fs)

	var (
		showVersion    bool
		cpuProfile     string
		previewFormat  string
		previewQuality int
	)
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.StringVar(&cpuProfile, "cpuprofile", "", "Write CPU profile to file")
	fs.StringVar(&previewFormat, "preview-format", "png", "Preview image encoding: png, jpeg, webp")
	fs.IntVar(&previewQuality, "preview-quality", 85, "Preview JPEG/WebP quality 1-100")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: stitch [flags] <tile-directory>\n\n")
		fmt.Fprintf(os.Stderr, "Register a light-sheet microscope tile mosaic and write its absolute positions.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	fs.Parse(os.Args[1:])

	if showVersion {
		fmt.Printf("stitch %s (commit %s)\n", version, commit)
		os.Exit(0)
	}

	if cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			log.Fatalf("Creating CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("Starting CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	args := fs.Args()
	if len(args) != 1 {
		fs.Usage()
		os.Exit(1)
	}
	dir := args[0]

	fmt.Printf("stitch %s (commit %s)\n", version, commit)
	fmt.Printf("  %-14s %s\n", "Directory:", dir)
	fmt.Printf("  %-14s %d\n", "Concurrency:", cfg.Concurrency)
	fmt.Printf("  %-14s %d\n", "Overlap:", cfg.Overlap)
	fmt.Printf("  %-14s %d / %d\n", "Max shift Z/X:", cfg.MaxShiftZ, cfg.MaxShiftX)
	fmt.Printf("  %-14s %s\n", "Persist:", cfg.PersistPath)

	start := time.Now()
	result, err := pipeline.Run(dir, *cfg)
	if err != nil {
		log.Fatalf("stitch: %v", err)
	}
	elapsed := time.Since(start).Round(time.Millisecond)

	fmt.Printf("Done: %d tile(s), %d recorded pair(s), %v\n",
		len(result.Grid.Tiles()), result.Pairs.Len(), elapsed)

	if cfg.PreviewPath != "" {
		data, err := preview.Encode(result.Grid, result.Pairs, preview.DefaultOptions(), previewFormat, previewQuality)
		if err != nil {
			log.Fatalf("stitch: rendering preview: %v", err)
		}
		if err := os.WriteFile(cfg.PreviewPath, data, 0o644); err != nil {
			log.Fatalf("stitch: writing preview: %v", err)
		}
		fmt.Printf("Preview written → %s\n", cfg.PreviewPath)
	}
}
