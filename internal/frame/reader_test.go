package frame

import (
	"path/filepath"
	"testing"
)

func makeStack(ysize, xsize, nfrms int, fill func(z, y, x int) float64) [][]float64 {
	frames := make([][]float64, nfrms)
	for z := 0; z < nfrms; z++ {
		p := make([]float64, ysize*xsize)
		for y := 0; y < ysize; y++ {
			for x := 0; x < xsize; x++ {
				p[y*xsize+x] = fill(z, y, x)
			}
		}
		frames[z] = p
	}
	return frames
}

func TestReaderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tile.tstk")

	ysize, xsize, nfrms := 5, 4, 3
	ch0 := makeStack(ysize, xsize, nfrms, func(z, y, x int) float64 {
		return float64(z*100 + y*10 + x)
	})

	if err := Write(path, ysize, xsize, [][][]float64{ch0}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if r.NFrms() != nfrms || r.YSize() != ysize || r.XSize() != xsize {
		t.Fatalf("dims = (%d,%d,%d), want (%d,%d,%d)", r.NFrms(), r.YSize(), r.XSize(), nfrms, ysize, xsize)
	}

	v, err := r.Layer(0, nfrms)
	if err != nil {
		t.Fatalf("Layer: %v", err)
	}
	for z := 0; z < nfrms; z++ {
		for y := 0; y < ysize; y++ {
			for x := 0; x < xsize; x++ {
				want := float64(z*100 + y*10 + x)
				if got := v.At(z, y, x); got != want {
					t.Fatalf("At(%d,%d,%d) = %v, want %v", z, y, x, got, want)
				}
			}
		}
	}

	one, err := r.LayerIdx(1)
	if err != nil {
		t.Fatalf("LayerIdx: %v", err)
	}
	if one.Z != 1 {
		t.Fatalf("LayerIdx shape Z = %d, want 1", one.Z)
	}
	if one.At(0, 2, 1) != 121 {
		t.Fatalf("LayerIdx value = %v, want 121", one.At(0, 2, 1))
	}
}

func TestReaderOutOfBounds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tile.tstk")
	ch0 := makeStack(4, 4, 2, func(z, y, x int) float64 { return 0 })
	if err := Write(path, 4, 4, [][][]float64{ch0}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if _, err := r.Layer(0, 10); err == nil {
		t.Fatal("expected out-of-bounds error")
	}
	if _, err := r.Layer(-1, 1); err == nil {
		t.Fatal("expected out-of-bounds error")
	}
}

func TestVolumeSubAndRot90(t *testing.T) {
	v := NewVolume(1, 3, 4)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			v.Set(0, y, x, float64(y*4+x))
		}
	}

	sub := v.Sub(1, 3, 2, 4)
	if sub.Y != 2 || sub.X != 2 {
		t.Fatalf("Sub shape = (%d,%d), want (2,2)", sub.Y, sub.X)
	}
	if sub.At(0, 0, 0) != v.At(0, 1, 2) {
		t.Fatalf("Sub(0,0,0) = %v, want %v", sub.At(0, 0, 0), v.At(0, 1, 2))
	}

	rot := v.Rot90()
	if rot.Y != 4 || rot.X != 3 {
		t.Fatalf("Rot90 shape = (%d,%d), want (4,3)", rot.Y, rot.X)
	}
}
