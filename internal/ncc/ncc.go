// Package ncc implements the FFT-based normalized cross-correlation engine
// (spec §4.B): given a search volume A and a smaller template B with the
// same Z extent, it computes the Pearson NCC of B against every (y, x)
// position in A, one Z slice at a time.
package ncc

import (
	"fmt"
	"math"

	"github.com/pspoerri/tilestitch/internal/frame"
)

// varianceEpsilon is the threshold below which a template is considered
// degenerate (spec §7 "Degenerate NCC"): zero variance makes the Pearson
// denominator zero, so the peak score is undefined everywhere.
const varianceEpsilon = 1e-12

// IsDegenerate reports whether B has (numerically) zero variance, in which
// case Compute's result is NaN everywhere and callers should emit score 0
// without invoking the engine.
func IsDegenerate(b *frame.Volume) bool {
	n := float64(b.Y * b.X)
	for z := 0; z < b.Z; z++ {
		sumB, sumB2 := 0.0, 0.0
		for _, v := range b.Plane(z) {
			sumB += v
			sumB2 += v * v
		}
		varB := sumB2 - sumB*sumB/n
		if varB <= varianceEpsilon {
			return true
		}
	}
	return false
}

// Compute returns the NCC volume of template B against search volume A.
// A and B must share the same Z extent; B must fit within A on every axis.
// The output shape is (Z, Y_A-Y_B+1, X_A-X_B+1). Entries are NaN wherever
// the local denominator is zero (spec §4.B); callers must treat NaN as -Inf
// for arg-max purposes.
func Compute(a, b *frame.Volume) (*frame.Volume, error) {
	if a.Z != b.Z {
		return nil, fmt.Errorf("ncc: Z mismatch: A has %d, B has %d", a.Z, b.Z)
	}
	if b.Y > a.Y || b.X > a.X {
		return nil, fmt.Errorf("ncc: template %dx%d does not fit in search volume %dx%d", b.Y, b.X, a.Y, a.X)
	}
	if a.Y <= 0 || a.X <= 0 || b.Y <= 0 || b.X <= 0 {
		return nil, fmt.Errorf("ncc: non-positive dimension")
	}

	outH := a.Y - b.Y + 1
	outW := a.X - b.X + 1
	out := frame.NewVolume(a.Z, outH, outW)

	n := float64(b.Y * b.X)

	for z := 0; z < a.Z; z++ {
		aPlane := a.Plane(z)
		bPlane := b.Plane(z)

		fa := getGrid(a.Y * a.X)
		fa2 := getGrid(a.Y * a.X)
		fb := getGrid(a.Y * a.X)
		f1 := getGrid(a.Y * a.X)

		for i, v := range aPlane {
			fa[i] = complex(v, 0)
			fa2[i] = complex(v*v, 0)
		}
		for y := 0; y < b.Y; y++ {
			for x := 0; x < b.X; x++ {
				fb[y*a.X+x] = complex(bPlane[y*b.X+x], 0)
				f1[y*a.X+x] = complex(1, 0)
			}
		}

		fft2(fa, a.Y, a.X)
		fft2(fa2, a.Y, a.X)
		fft2(fb, a.Y, a.X)
		fft2(f1, a.Y, a.X)

		conv := make([]complex128, a.Y*a.X)
		sumAc := make([]complex128, a.Y*a.X)
		sumA2c := make([]complex128, a.Y*a.X)
		for i := range conv {
			conv[i] = fa[i] * cmplxConj(fb[i])
			sumAc[i] = fa[i] * cmplxConj(f1[i])
			sumA2c[i] = fa2[i] * cmplxConj(f1[i])
		}
		ifft2(conv, a.Y, a.X)
		ifft2(sumAc, a.Y, a.X)
		ifft2(sumA2c, a.Y, a.X)

		sumB, sumB2 := 0.0, 0.0
		for _, v := range bPlane {
			sumB += v
			sumB2 += v * v
		}
		varB := sumB2 - sumB*sumB/n

		outPlane := out.Plane(z)
		for y := 0; y < outH; y++ {
			for x := 0; x < outW; x++ {
				idx := y*a.X + x
				outIdx := y*outW + x

				c := real(conv[idx])
				sa := real(sumAc[idx])
				sa2 := real(sumA2c[idx])

				num := c - sumB*sa/n
				varA := sa2 - sa*sa/n
				den := math.Sqrt(varA * varB)

				outPlane[outIdx] = num / den
			}
		}

		putGrid(fa)
		putGrid(fa2)
		putGrid(fb)
		putGrid(f1)
	}

	return out, nil
}

func cmplxConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}

// ArgMax returns the (z, y, x) index of the maximum value in v, treating NaN
// as -Inf (spec §4.B), and that maximum value. Returns ok=false if v is
// empty or every entry is NaN.
func ArgMax(v *frame.Volume) (z, y, x int, score float64, ok bool) {
	best := math.Inf(-1)
	found := false
	for zi := 0; zi < v.Z; zi++ {
		for yi := 0; yi < v.Y; yi++ {
			for xi := 0; xi < v.X; xi++ {
				val := v.At(zi, yi, xi)
				if math.IsNaN(val) {
					continue
				}
				if !found || val > best {
					best = val
					z, y, x = zi, yi, xi
					found = true
				}
			}
		}
	}
	return z, y, x, best, found
}
