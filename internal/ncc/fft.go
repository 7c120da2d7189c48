package ncc

import "gonum.org/v1/gonum/dsp/fourier"

// fft2 computes the forward 2D DFT of a (Y, X) row-major complex grid
// in place, as two passes of 1D FFTs (rows, then columns) — the standard
// separable decomposition of a 2D DFT.
func fft2(data []complex128, y, x int) {
	transform1D(data, y, x, false, false)
	transform1D(data, y, x, true, false)
}

// ifft2 computes the inverse 2D DFT in place, including the 1/(Y*X)
// normalization. gonum's Sequence is unnormalized, so the scaling is
// applied here after both passes.
func ifft2(data []complex128, y, x int) {
	transform1D(data, y, x, false, true)
	transform1D(data, y, x, true, true)
	scale := complex(1/float64(y*x), 0)
	for i := range data {
		data[i] *= scale
	}
}

// transform1D applies a 1D complex FFT (or inverse) along rows (cols=false)
// or columns (cols=true) of a (y, x) row-major grid, in place.
func transform1D(data []complex128, y, x int, cols, inverse bool) {
	if cols {
		n := y
		t := fourier.NewCmplxFFT(n)
		in := make([]complex128, n)
		for col := 0; col < x; col++ {
			for row := 0; row < n; row++ {
				in[row] = data[row*x+col]
			}
			var out []complex128
			if inverse {
				out = t.Sequence(nil, in)
			} else {
				out = t.Coefficients(nil, in)
			}
			for row := 0; row < n; row++ {
				data[row*x+col] = out[row]
			}
		}
		return
	}

	n := x
	t := fourier.NewCmplxFFT(n)
	for row := 0; row < y; row++ {
		seg := data[row*n : (row+1)*n]
		var out []complex128
		if inverse {
			out = t.Sequence(nil, seg)
		} else {
			out = t.Coefficients(nil, seg)
		}
		copy(seg, out)
	}
}
