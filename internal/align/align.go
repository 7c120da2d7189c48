// Package align implements the pair aligner (spec §4.C): it picks matching
// overlap slabs from two adjacent tiles, runs the NCC engine on them, and
// extracts the best shift and confidence score. A worker pool runs many
// pair-alignment jobs concurrently, each with its own frame-source handles.
package align

import (
	"fmt"
	"path/filepath"

	"github.com/pspoerri/tilestitch/internal/frame"
	"github.com/pspoerri/tilestitch/internal/grid"
	"github.com/pspoerri/tilestitch/internal/ncc"
)

// Config holds the tunables of the pair-alignment procedure. These were
// hard-coded to a specific microscope's pitch in the system this was
// distilled from; the spec requires exposing them as configuration.
type Config struct {
	// Overlap is the nominal overlap, in pixels, between adjacent tiles
	// along the stitching axis.
	Overlap int
	// MaxShiftZ bounds the Z search range: the aligner searches
	// [z_frame-MaxShiftZ, z_frame+MaxShiftZ].
	MaxShiftZ int
	// MaxShiftX bounds the lateral search margin.
	MaxShiftX int
}

// Align runs the pair-alignment procedure for one neighbor job, opening
// independent frame-source handles for a and b (spec §5: "frame-source
// handles are per-thread"). zFrame is the reference Z frame the search
// window is centered on (spec §4.C Input: "a reference Z frame z_frame"),
// supplied by the caller rather than derived inside Align. Returns
// ok=false for a pair-underflow (spec §7): the caller should skip the job
// without emitting a record.
func Align(dir string, job grid.NeighborJob, zFrame int, cfg Config) (pair grid.Pair, ok bool, err error) {
	aSrc, err := frame.Open(filepath.Join(dir, job.A.Name))
	if err != nil {
		return grid.Pair{}, false, fmt.Errorf("align: opening %s: %w", job.A.Name, err)
	}
	defer aSrc.Close()

	bSrc, err := frame.Open(filepath.Join(dir, job.B.Name))
	if err != nil {
		return grid.Pair{}, false, fmt.Errorf("align: opening %s: %w", job.B.Name, err)
	}
	defer bSrc.Close()

	zFrom := zFrame - cfg.MaxShiftZ
	zTo := zFrame + cfg.MaxShiftZ + 1
	if zFrom < 0 || zTo > aSrc.NFrms() {
		return grid.Pair{}, false, nil
	}

	aSlab, err := aSrc.Layer(zFrom, zTo)
	if err != nil {
		return grid.Pair{}, false, fmt.Errorf("align: reading %s Z slab: %w", job.A.Name, err)
	}
	if job.Axis == grid.AxisEast {
		aSlab = aSlab.Rot90()
	}

	if aSlab.Y < cfg.Overlap {
		return grid.Pair{}, false, nil
	}
	aCrop := aSlab.Sub(aSlab.Y-cfg.Overlap, aSlab.Y, 0, aSlab.X)

	bFrame, err := bSrc.LayerIdx(zFrame)
	if err != nil {
		return grid.Pair{}, false, fmt.Errorf("align: reading %s frame %d: %w", job.B.Name, zFrame, err)
	}
	if job.Axis == grid.AxisEast {
		bFrame = bFrame.Rot90()
	}
	if bFrame.Y < cfg.Overlap {
		return grid.Pair{}, false, nil
	}
	bBorder := bFrame.Sub(0, cfg.Overlap, 0, bFrame.X)

	halfOverlap := cfg.Overlap / 2
	halfShiftX := cfg.MaxShiftX / 2
	xFrom, xTo := halfShiftX, bBorder.X-halfShiftX
	if halfOverlap <= 0 || xFrom >= xTo || xTo > bBorder.X {
		return grid.Pair{}, false, nil
	}
	bTemplate2D := bBorder.Sub(0, halfOverlap, xFrom, xTo)
	if bTemplate2D.Y <= 0 || bTemplate2D.X <= 0 {
		return grid.Pair{}, false, nil
	}

	bTemplate := broadcastZ(bTemplate2D, aCrop.Z)

	if ncc.IsDegenerate(bTemplate) {
		return grid.Pair{AName: job.A.Name, BName: job.B.Name, Axis: job.Axis, Score: 0}, true, nil
	}

	out, err := ncc.Compute(aCrop, bTemplate)
	if err != nil {
		return grid.Pair{}, false, fmt.Errorf("align: ncc %s/%s: %w", job.A.Name, job.B.Name, err)
	}

	dzIdx, dyIdx, dxIdx, score, found := ncc.ArgMax(out)
	if !found {
		return grid.Pair{}, false, nil
	}

	p := grid.Pair{
		AName: job.A.Name,
		BName: job.B.Name,
		Axis:  job.Axis,
		DZ:    dzIdx - cfg.MaxShiftZ,
		DY:    cfg.Overlap - dyIdx,
		DX:    dxIdx - halfShiftX,
		Score: score,
	}
	return p, true, nil
}

// broadcastZ replicates a single-Z-plane volume across n Z slices, so it
// can serve as an NCC template matched against a multi-slice search slab
// (spec §4.B requires the search and template volumes to share a Z extent;
// the pair aligner searches across Z by testing the same 2D template
// against every candidate slice).
func broadcastZ(v *frame.Volume, n int) *frame.Volume {
	out := frame.NewVolume(n, v.Y, v.X)
	plane := v.Plane(0)
	for z := 0; z < n; z++ {
		copy(out.Plane(z), plane)
	}
	return out
}
