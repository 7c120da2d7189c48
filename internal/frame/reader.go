package frame

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Source is the frame-source adapter contract consumed by the rest of the
// pipeline (spec §4.A, §6). A concrete file format is out of scope for this
// repository; Reader below is the minimal reference implementation used to
// exercise and test the contract.
type Source interface {
	// Layer loads Z frames [zFrom, zTo) of the current channel.
	Layer(zFrom, zTo int) (*Volume, error)
	// LayerIdx loads a single Z frame of the current channel, shape (1, Y, X).
	LayerIdx(z int) (*Volume, error)

	NFrms() int
	YSize() int
	XSize() int
	Channel() int
	SetChannel(c int) error

	Close() error
}

// Reader is the reference Source implementation: it memory-maps a tile
// stack file in the format described in format.go.
type Reader struct {
	path    string
	data    []byte
	hdr     header
	channel int
}

var _ Source = (*Reader)(nil)

// Open memory-maps and validates a tile stack file.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.Size() < headerSize {
		return nil, fmt.Errorf("%s: file too small for header", path)
	}

	data, err := mmapFile(f.Fd(), int(fi.Size()))
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	var h header
	copy(h.Magic[:], data[0:4])
	h.Version = binary.LittleEndian.Uint16(data[4:6])
	h.Channels = binary.LittleEndian.Uint16(data[6:8])
	h.NFrms = binary.LittleEndian.Uint32(data[8:12])
	h.YSize = binary.LittleEndian.Uint32(data[12:16])
	h.XSize = binary.LittleEndian.Uint32(data[16:20])
	h.DType = binary.LittleEndian.Uint16(data[20:22])

	if err := h.validate(); err != nil {
		munmapFile(data)
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	want := int64(headerSize) + int64(h.Channels)*h.channelBytes()
	if int64(len(data)) < want {
		munmapFile(data)
		return nil, fmt.Errorf("%s: truncated (have %d bytes, want %d)", path, len(data), want)
	}

	return &Reader{path: path, data: data, hdr: h, channel: 0}, nil
}

func (r *Reader) NFrms() int  { return int(r.hdr.NFrms) }
func (r *Reader) YSize() int  { return int(r.hdr.YSize) }
func (r *Reader) XSize() int  { return int(r.hdr.XSize) }
func (r *Reader) Channel() int { return r.channel }

// SetChannel selects the channel subsequent Layer/LayerIdx calls read from.
func (r *Reader) SetChannel(c int) error {
	if c < 0 || c >= int(r.hdr.Channels) {
		return fmt.Errorf("%s: channel %d out of range [0,%d)", r.path, c, r.hdr.Channels)
	}
	r.channel = c
	return nil
}

// Layer loads Z frames [zFrom, zTo) of the current channel as a (zTo-zFrom,
// YSize, XSize) row-major float64 volume (spec §4.A).
func (r *Reader) Layer(zFrom, zTo int) (*Volume, error) {
	if zFrom < 0 || zTo > int(r.hdr.NFrms) || zFrom >= zTo {
		return nil, fmt.Errorf("%s: z-range [%d,%d) out of stack bounds [0,%d)", r.path, zFrom, zTo, r.hdr.NFrms)
	}

	n := zTo - zFrom
	y, x := int(r.hdr.YSize), int(r.hdr.XSize)
	v := NewVolume(n, y, x)

	base := int64(headerSize) + int64(r.channel)*r.hdr.channelBytes() + int64(zFrom)*r.hdr.frameBytes()
	for z := 0; z < n; z++ {
		off := base + int64(z)*r.hdr.frameBytes()
		plane := v.Plane(z)
		for i := 0; i < y*x; i++ {
			bits := binary.LittleEndian.Uint32(r.data[off+int64(i)*4 : off+int64(i)*4+4])
			plane[i] = float64(math.Float32frombits(bits))
		}
	}
	return v, nil
}

// LayerIdx loads a single Z frame, shape (1, YSize, XSize).
func (r *Reader) LayerIdx(z int) (*Volume, error) {
	return r.Layer(z, z+1)
}

// Close releases the memory mapping.
func (r *Reader) Close() error {
	if r.data == nil {
		return nil
	}
	err := munmapFile(r.data)
	r.data = nil
	return err
}
