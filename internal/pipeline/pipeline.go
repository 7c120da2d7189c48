// Package pipeline orchestrates the full registration run: load the tile
// matrix, align every neighbor pair, estimate initial positions, refine
// with the global optimizer, and derive overlap geometry — short-
// circuiting position estimation and optimization when a prior run's
// persisted positions are available (spec §6).
package pipeline

import (
	"fmt"
	"log"
	"math"

	"github.com/pspoerri/tilestitch/internal/align"
	"github.com/pspoerri/tilestitch/internal/config"
	"github.com/pspoerri/tilestitch/internal/grid"
	"github.com/pspoerri/tilestitch/internal/optimize"
	"github.com/pspoerri/tilestitch/internal/overlap"
	"github.com/pspoerri/tilestitch/internal/persist"
	"github.com/pspoerri/tilestitch/internal/position"
)

// Result is the pipeline's output: the loaded grid (with every tile's
// Absolute position set), the pair table behind it, and each tile's
// overlap geometry.
type Result struct {
	Grid    *grid.Grid
	Pairs   *grid.Table
	Overlap map[string]map[overlap.Direction]overlap.Box
}

// Run executes the pipeline against dir (spec §7 fatal aborts: missing
// directory, empty tile table, inconsistent per-tile sizes are all
// surfaced as errors from grid.Load).
func Run(dir string, cfg config.RunConfig) (*Result, error) {
	g, err := grid.Load(dir, grid.Options{
		AscendingX:  cfg.AscendingX,
		AscendingY:  cfg.AscendingY,
		Concurrency: cfg.Concurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: loading tile matrix: %w", err)
	}

	doc, err := persist.Load(cfg.PersistPath)
	if err != nil {
		return nil, fmt.Errorf("pipeline: loading persisted state: %w", err)
	}

	var pairs *grid.Table
	if doc.HasPositions() {
		if cfg.Verbose {
			log.Printf("pipeline: found %d persisted absolute position(s), skipping alignment/estimation/optimization", len(doc.AbsolutePositions))
		}
		pairs = persist.ToTable(doc.Xcorr)
		if err := persist.ApplyTo(g, doc.AbsolutePositions); err != nil {
			return nil, fmt.Errorf("pipeline: applying persisted positions: %w", err)
		}
	} else {
		maxSide := 0
		for _, t := range g.Tiles() {
			maxSide = max(maxSide, t.XSize, t.YSize)
		}
		conc := align.PoolSize(cfg.Concurrency, 2*cfg.MaxShiftZ+1, cfg.Overlap, maxSide, cfg.Verbose)

		var stats align.Stats
		pairs, stats, err = align.RunPool(g.NeighborPairs(), align.PoolConfig{
			Dir:         dir,
			Concurrency: conc,
			Verbose:     cfg.Verbose,
			Config:      cfg.AlignConfig(),
		})
		if err != nil {
			return nil, fmt.Errorf("pipeline: aligning pairs: %w", err)
		}
		if cfg.Verbose {
			log.Printf("pipeline: aligned %d pair(s), %d skipped", stats.Recorded, stats.Skipped)
		}

		if err := position.Estimate(g, pairs); err != nil {
			return nil, fmt.Errorf("pipeline: estimating initial positions: %w", err)
		}

		result := optimize.Run(g, pairs, cfg.Optimize)
		applyOptimizerResult(g, result)

		if err := persist.Save(cfg.PersistPath, &persist.Document{
			XcorrOptions:      persist.XcorrOptions{AscendingTilesX: cfg.AscendingX, AscendingTilesY: cfg.AscendingY},
			Xcorr:             persist.FromTable(pairs),
			AbsolutePositions: persist.FromGrid(g),
		}); err != nil {
			return nil, fmt.Errorf("pipeline: persisting results: %w", err)
		}
	}

	overlaps := make(map[string]map[overlap.Direction]overlap.Box, len(g.Tiles()))
	for _, t := range g.Tiles() {
		overlaps[t.Name] = overlap.All(g, pairs, t)
	}

	return &Result{Grid: g, Pairs: pairs, Overlap: overlaps}, nil
}

// applyOptimizerResult decodes the optimizer's champion decision vector,
// normalizes to the origin, and writes each tile's Absolute position
// (spec §4.F "Output").
func applyOptimizerResult(g *grid.Grid, result optimize.Result) {
	tiles := optimize.Decode(result)
	if len(tiles) == 0 || len(tiles[0]) == 0 {
		return
	}

	minX, minY, minZ := tiles[0][0].PX, tiles[0][0].PY, tiles[0][0].PZ
	for r := 0; r < g.YSize; r++ {
		for c := 0; c < g.XSize; c++ {
			v := tiles[r][c]
			if v.PX < minX {
				minX = v.PX
			}
			if v.PY < minY {
				minY = v.PY
			}
			if v.PZ < minZ {
				minZ = v.PZ
			}
		}
	}

	for row := 0; row < g.YSize; row++ {
		for col := 0; col < g.XSize; col++ {
			t, ok := g.At(row, col)
			if !ok {
				continue
			}
			v := tiles[row][col]
			t.Absolute = [3]int{roundInt(v.PX - minX), roundInt(v.PY - minY), roundInt(v.PZ - minZ)}
			t.AbsoluteSet = true
		}
	}
}

func roundInt(f float64) int {
	return int(math.Round(f))
}
