package dispcodec

import (
	"fmt"

	"github.com/mrjoshuak/go-stereo/internal/xdr"
)

// Magic identifies a disparity map container.
const Magic = "DSPM"

// Version is the container version written by this package.
const Version = 1

// headerSize is the encoded size of Header in bytes.
const headerSize = 4 + 4 + 4*4 + 2 + 4 + 4

// maxPixels bounds the image size a header may declare.
const maxPixels = 1 << 28

// Header flags.
const (
	// FlagSubpixel marks a map quantized with a fractional scale.
	FlagSubpixel uint8 = 1 << iota
	// FlagCost marks a container that carries a cost plane.
	FlagCost
)

// Header describes an encoded disparity map.
type Header struct {
	Version      uint8
	Flags        uint8
	Compression  Compression
	Width        int
	Height       int
	MinDisparity int
	MaxDisparity int
	// Scale is the number of quantization steps per disparity unit.
	Scale int
	// PayloadLength and CostLength are the byte sizes of the sample and cost
	// sections that follow the header.
	PayloadLength int
	CostLength    int
}

// Subpixel reports whether the samples carry fractional disparities.
func (h *Header) Subpixel() bool {
	return h.Flags&FlagSubpixel != 0
}

// HasCost reports whether the container carries a cost plane.
func (h *Header) HasCost() bool {
	return h.Flags&FlagCost != 0
}

func (h *Header) write(w *xdr.Writer) {
	w.PutBytes([]byte(Magic))
	w.PutUint8(h.Version)
	w.PutUint8(h.Flags)
	w.PutUint8(uint8(h.Compression))
	w.PutUint8(0) // reserved
	w.PutUint32(uint32(h.Width))
	w.PutUint32(uint32(h.Height))
	w.PutInt32(int32(h.MinDisparity))
	w.PutInt32(int32(h.MaxDisparity))
	w.PutUint16(uint16(h.Scale))
	w.PutUint32(uint32(h.PayloadLength))
	w.PutUint32(uint32(h.CostLength))
}

// readHeader parses and validates a header.
func readHeader(r *xdr.Reader) (*Header, error) {
	if n := r.Len(); n < headerSize {
		if n >= len(Magic) && string(r.Bytes(len(Magic))) != Magic {
			return nil, ErrBadMagic
		}
		return nil, fmt.Errorf("%w: %d byte header", ErrCorrupted, n)
	}
	if string(r.Bytes(len(Magic))) != Magic {
		return nil, ErrBadMagic
	}

	h := &Header{
		Version:     r.Uint8(),
		Flags:       r.Uint8(),
		Compression: Compression(r.Uint8()),
	}
	r.Uint8() // reserved
	h.Width = int(r.Uint32())
	h.Height = int(r.Uint32())
	h.MinDisparity = int(r.Int32())
	h.MaxDisparity = int(r.Int32())
	h.Scale = int(r.Uint16())
	h.PayloadLength = int(r.Uint32())
	h.CostLength = int(r.Uint32())
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	if h.Version != Version {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupported, h.Version)
	}
	switch h.Compression {
	case None, ZIP, J2K:
	default:
		return nil, fmt.Errorf("%w: compression %d", ErrUnsupported, uint8(h.Compression))
	}
	if h.Width <= 0 || h.Height <= 0 || h.Width > maxPixels/h.Height {
		return nil, fmt.Errorf("%w: %dx%d image", ErrCorrupted, h.Width, h.Height)
	}
	if h.MinDisparity < 0 || h.MaxDisparity <= h.MinDisparity {
		return nil, fmt.Errorf("%w: disparity range [%d, %d)", ErrCorrupted, h.MinDisparity, h.MaxDisparity)
	}
	if !validScale(h.Scale) || (h.Scale > 1) != h.Subpixel() {
		return nil, fmt.Errorf("%w: scale %d", ErrCorrupted, h.Scale)
	}
	if h.PayloadLength > r.Len() || h.CostLength > r.Len()-h.PayloadLength {
		return nil, fmt.Errorf("%w: sections of %d+%d bytes, %d available",
			ErrCorrupted, h.PayloadLength, h.CostLength, r.Len())
	}
	if (h.CostLength > 0) != h.HasCost() {
		return nil, fmt.Errorf("%w: cost flag and length disagree", ErrCorrupted)
	}
	return h, nil
}

func validScale(s int) bool {
	return s >= 1 && s <= maxScale && s&(s-1) == 0
}
