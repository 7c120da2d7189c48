package frame

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Write creates a tile stack file at path from channel-major, frame-major
// (Y, X) planes. Each element of planes is one channel's list of NFrms
// frames, each a Y*X row-major float32-precision slice. Used by tests and by
// tooling that needs to materialize synthetic fixtures.
func Write(path string, ysize, xsize int, planes [][][]float64) error {
	if len(planes) == 0 || len(planes[0]) == 0 {
		return fmt.Errorf("frame: no data to write")
	}
	nfrms := len(planes[0])
	for c, ch := range planes {
		if len(ch) != nfrms {
			return fmt.Errorf("frame: channel %d has %d frames, want %d", c, len(ch), nfrms)
		}
		for z, p := range ch {
			if len(p) != ysize*xsize {
				return fmt.Errorf("frame: channel %d frame %d has %d samples, want %d", c, z, len(p), ysize*xsize)
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	hdr := make([]byte, headerSize)
	copy(hdr[0:4], magic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], formatVersion)
	binary.LittleEndian.PutUint16(hdr[6:8], uint16(len(planes)))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(nfrms))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(ysize))
	binary.LittleEndian.PutUint32(hdr[16:20], uint32(xsize))
	binary.LittleEndian.PutUint16(hdr[20:22], dtypeFloat32)
	if _, err := f.Write(hdr); err != nil {
		return err
	}

	buf := make([]byte, ysize*xsize*4)
	for _, ch := range planes {
		for _, p := range ch {
			for i, v := range p {
				binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(float32(v)))
			}
			if _, err := f.Write(buf); err != nil {
				return err
			}
		}
	}
	return nil
}
