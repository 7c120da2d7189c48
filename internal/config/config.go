// Package config aggregates every pipeline tunable into a single RunConfig
// (spec §3 addition), so the pipeline is a pure function of (directory,
// RunConfig) instead of scattering hard-coded constants across packages.
package config

import (
	"flag"
	"runtime"

	"github.com/pspoerri/tilestitch/internal/align"
	"github.com/pspoerri/tilestitch/internal/optimize"
)

// RunConfig is the aggregate of every tunable named across §4.C, §4.F, and
// §5.
type RunConfig struct {
	// Mosaic orientation (§4.D).
	AscendingX bool
	AscendingY bool

	// Pair aligner (§4.C).
	Overlap   int
	MaxShiftZ int
	MaxShiftX int

	// Worker pool sizing (§5).
	Concurrency           int
	MemoryPressurePercent float64

	// Global optimizer (§4.F).
	Optimize optimize.Config

	// Output.
	PersistPath string
	PreviewPath string
	Verbose     bool
}

// Default returns the documented defaults: a tile pitch near 400-512 px,
// one worker per CPU, and the §4.F simulated-annealing schedule.
func Default() RunConfig {
	return RunConfig{
		AscendingX:            true,
		AscendingY:            true,
		Overlap:               20,
		MaxShiftZ:             10,
		MaxShiftX:             30,
		Concurrency:           runtime.NumCPU(),
		MemoryPressurePercent: align.DefaultMemoryPressurePercent,
		Optimize:              optimize.DefaultConfig(),
		PersistPath:           "stitch.yaml",
		PreviewPath:           "",
		Verbose:               false,
	}
}

// RegisterFlags binds fs's flags to a RunConfig seeded with Default(),
// following the teacher's one-struct-field-per-flag wiring.
func RegisterFlags(fs *flag.FlagSet) *RunConfig {
	cfg := Default()

	fs.BoolVar(&cfg.AscendingX, "ascending-x", cfg.AscendingX, "Stage X axis increases with mosaic column index")
	fs.BoolVar(&cfg.AscendingY, "ascending-y", cfg.AscendingY, "Stage Y axis increases with mosaic row index")

	fs.IntVar(&cfg.Overlap, "overlap", cfg.Overlap, "Nominal overlap between adjacent tiles, in pixels")
	fs.IntVar(&cfg.MaxShiftZ, "max-shift-z", cfg.MaxShiftZ, "Maximum Z search radius for pair alignment")
	fs.IntVar(&cfg.MaxShiftX, "max-shift-x", cfg.MaxShiftX, "Maximum X search radius for pair alignment")

	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Number of parallel pair-alignment workers")
	fs.Float64Var(&cfg.MemoryPressurePercent, "mem-fraction", cfg.MemoryPressurePercent, "Fraction of system RAM for the worker pool; stored in the config only, pool sizing uses align.DefaultMemoryPressurePercent")

	fs.Float64Var(&cfg.Optimize.East.PXMin, "opt-east-px-min", cfg.Optimize.East.PXMin, "Global optimizer: east-row px lower bound")
	fs.Float64Var(&cfg.Optimize.East.PXMax, "opt-east-px-max", cfg.Optimize.East.PXMax, "Global optimizer: east-row px upper bound")
	fs.Float64Var(&cfg.Optimize.South.PYMin, "opt-south-py-min", cfg.Optimize.South.PYMin, "Global optimizer: south-row py lower bound")
	fs.Float64Var(&cfg.Optimize.South.PYMax, "opt-south-py-max", cfg.Optimize.South.PYMax, "Global optimizer: south-row py upper bound")
	fs.IntVar(&cfg.Optimize.Islands, "opt-islands", cfg.Optimize.Islands, "Global optimizer: number of simulated-annealing islands")
	fs.IntVar(&cfg.Optimize.EvolutionRounds, "opt-rounds", cfg.Optimize.EvolutionRounds, "Global optimizer: evolution rounds per island")

	fs.StringVar(&cfg.PersistPath, "persist", cfg.PersistPath, "Path to the YAML state file (xcorr + absolute positions)")
	fs.StringVar(&cfg.PreviewPath, "preview", cfg.PreviewPath, "Optional path to write a schematic mosaic preview image")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Verbose progress output")

	return &cfg
}

// AlignConfig extracts the align.Config subset of cfg.
func (c RunConfig) AlignConfig() align.Config {
	return align.Config{
		Overlap:   c.Overlap,
		MaxShiftZ: c.MaxShiftZ,
		MaxShiftX: c.MaxShiftX,
	}
}
