package frame

// Volume is a dense row-major 3D array of (Z, Y, X) float64 samples, matching
// the frame-source adapter's output contract (spec §4.A).
type Volume struct {
	Z, Y, X int
	Data    []float64
}

// NewVolume allocates a zeroed volume of the given shape.
func NewVolume(z, y, x int) *Volume {
	return &Volume{Z: z, Y: y, X: x, Data: make([]float64, z*y*x)}
}

// At returns the sample at (z, y, x).
func (v *Volume) At(z, y, x int) float64 {
	return v.Data[(z*v.Y+y)*v.X+x]
}

// Set stores the sample at (z, y, x).
func (v *Volume) Set(z, y, x int, val float64) {
	v.Data[(z*v.Y+y)*v.X+x] = val
}

// Plane returns the slice of Data backing Z-index z, a (Y, X) row-major plane.
func (v *Volume) Plane(z int) []float64 {
	n := v.Y * v.X
	return v.Data[z*n : (z+1)*n]
}

// Sub returns a new volume containing rows [yFrom, yTo) and columns
// [xFrom, xTo) of every Z plane. Used to crop overlap borders (spec §4.C).
func (v *Volume) Sub(yFrom, yTo, xFrom, xTo int) *Volume {
	h, w := yTo-yFrom, xTo-xFrom
	out := NewVolume(v.Z, h, w)
	for z := 0; z < v.Z; z++ {
		for y := 0; y < h; y++ {
			srcOff := (z*v.Y + yFrom + y) * v.X
			dstOff := (z*h + y) * w
			copy(out.Data[dstOff:dstOff+w], v.Data[srcOff+xFrom:srcOff+xFrom+w])
		}
	}
	return out
}

// Rot90 rotates every (Y, X) plane 90 degrees, mapping the Y axis onto X and
// vice versa. Used to normalize axis=2 (east) pairs onto the axis=1
// conventions before alignment (spec §4.C step 1).
func (v *Volume) Rot90() *Volume {
	out := NewVolume(v.Z, v.X, v.Y)
	for z := 0; z < v.Z; z++ {
		for y := 0; y < v.Y; y++ {
			for x := 0; x < v.X; x++ {
				// (y, x) -> (x, Y-1-y): clockwise rotation.
				out.Set(z, x, v.Y-1-y, v.At(z, y, x))
			}
		}
	}
	return out
}
