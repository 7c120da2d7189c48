// Package preview renders a schematic top-down view of a tile mosaic's
// absolute positions and overlap boxes for visual QA (spec §2 component L).
// It draws flat colored rectangles from already-computed geometry; it does
// not blend pixel data between tiles.
package preview

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/pspoerri/tilestitch/internal/encode"
	"github.com/pspoerri/tilestitch/internal/grid"
	"github.com/pspoerri/tilestitch/internal/overlap"
)

// Options controls the rendered preview's appearance.
type Options struct {
	// Scale maps one absolute-position unit to this many output pixels.
	// Mosaics are typically thousands of pixels wide; a Scale below 1
	// keeps the rendered image a manageable size.
	Scale float64

	TileFill    color.RGBA
	TileBorder  color.RGBA
	OverlapFill color.RGBA
}

// DefaultOptions returns a readable default palette at 1/8 scale.
func DefaultOptions() Options {
	return Options{
		Scale:       0.125,
		TileFill:    color.RGBA{R: 60, G: 90, B: 140, A: 255},
		TileBorder:  color.RGBA{R: 220, G: 220, B: 230, A: 255},
		OverlapFill: color.RGBA{R: 230, G: 140, B: 40, A: 255},
	}
}

// Render draws every tile in g as a filled, bordered rectangle at its
// absolute (X, Y) position and size, then overlays each tile's overlap
// boxes with the neighbors pairs can resolve (spec §4.G: overlap geometry
// is looked up via the Pair index, not grid adjacency).
func Render(g *grid.Grid, pairs *grid.Table, opts Options) *image.RGBA {
	tiles := g.Tiles()
	if len(tiles) == 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}

	maxX, maxY := 0, 0
	for _, t := range tiles {
		if e := t.XsEnd(); e > maxX {
			maxX = e
		}
		if e := t.YsEnd(); e > maxY {
			maxY = e
		}
	}

	w := scaleDim(maxX, opts.Scale)
	h := scaleDim(maxY, opts.Scale)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{A: 255}}, image.Point{}, draw.Src)

	for _, t := range tiles {
		rect := scaleRect(t.Absolute[0], t.Absolute[1], t.XsEnd(), t.YsEnd(), opts.Scale)
		fillRect(img, rect, opts.TileFill)
		strokeRect(img, rect, opts.TileBorder)
	}

	for _, t := range tiles {
		for _, d := range []overlap.Direction{overlap.S, overlap.E} {
			box := overlap.Compute(g, pairs, t, d)
			if box == (overlap.Box{}) {
				continue
			}
			rect := scaleRect(
				t.Absolute[0]+box.XFrom, t.Absolute[1]+box.YFrom,
				t.Absolute[0]+box.XTo, t.Absolute[1]+box.YTo,
				opts.Scale,
			)
			fillRect(img, rect, opts.OverlapFill)
		}
	}

	return img
}

// Encode renders g and encodes the result in the given format ("png",
// "jpeg"/"jpg", or "webp"), using internal/encode's Encoder registry.
func Encode(g *grid.Grid, pairs *grid.Table, opts Options, format string, quality int) ([]byte, error) {
	enc, err := encode.NewEncoder(format, quality)
	if err != nil {
		return nil, err
	}
	return enc.Encode(Render(g, pairs, opts))
}

func scaleDim(v int, scale float64) int {
	n := int(float64(v)*scale + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}

type rect struct{ x0, y0, x1, y1 int }

func scaleRect(x0, y0, x1, y1 int, scale float64) rect {
	r := rect{
		x0: int(float64(x0) * scale),
		y0: int(float64(y0) * scale),
		x1: int(float64(x1) * scale),
		y1: int(float64(y1) * scale),
	}
	if r.x1 <= r.x0 {
		r.x1 = r.x0 + 1
	}
	if r.y1 <= r.y0 {
		r.y1 = r.y0 + 1
	}
	return r
}

func fillRect(img *image.RGBA, r rect, c color.RGBA) {
	bounds := img.Bounds()
	for y := r.y0; y < r.y1; y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		for x := r.x0; x < r.x1; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X {
				continue
			}
			img.SetRGBA(x, y, c)
		}
	}
}

func strokeRect(img *image.RGBA, r rect, c color.RGBA) {
	bounds := img.Bounds()
	set := func(x, y int) {
		if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
			img.SetRGBA(x, y, c)
		}
	}
	for x := r.x0; x < r.x1; x++ {
		set(x, r.y0)
		set(x, r.y1-1)
	}
	for y := r.y0; y < r.y1; y++ {
		set(r.x0, y)
		set(r.x1-1, y)
	}
}
