// Package frame implements the frame-source adapter: a minimal,
// self-describing binary Z-stack format plus the Layer/LayerIdx contract
// the rest of the pipeline is built against. It deliberately does not
// attempt to decode any real microscope file format — that decoder is an
// external collaborator out of scope for this repository (see spec §1).
package frame

import "fmt"

// magic identifies a tile stack file. "TSTK" = TileStiTcher stacK.
var magic = [4]byte{'T', 'S', 'T', 'K'}

const (
	headerSize = 24
	formatVersion = 1

	dtypeFloat32 = 0
)

// header is the fixed-size file header, little-endian on disk.
type header struct {
	Magic    [4]byte
	Version  uint16
	Channels uint16
	NFrms    uint32
	YSize    uint32
	XSize    uint32
	DType    uint16
	_        uint16 // reserved, zero
}

func (h header) validate() error {
	if h.Magic != magic {
		return fmt.Errorf("frame: bad magic %q", h.Magic)
	}
	if h.Version != formatVersion {
		return fmt.Errorf("frame: unsupported format version %d", h.Version)
	}
	if h.Channels == 0 {
		return fmt.Errorf("frame: zero channels")
	}
	if h.NFrms == 0 || h.YSize == 0 || h.XSize == 0 {
		return fmt.Errorf("frame: zero-sized stack (nfrms=%d ysize=%d xsize=%d)", h.NFrms, h.YSize, h.XSize)
	}
	if h.DType != dtypeFloat32 {
		return fmt.Errorf("frame: unsupported dtype %d", h.DType)
	}
	return nil
}

// frameBytes is the size in bytes of a single (Y, X) plane for one channel.
func (h header) frameBytes() int64 {
	return int64(h.YSize) * int64(h.XSize) * 4
}

// channelBytes is the size in bytes of one full channel's Z-stack.
func (h header) channelBytes() int64 {
	return int64(h.NFrms) * h.frameBytes()
}
