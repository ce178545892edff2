// Package dispcodec stores disparity maps in a compact, self-describing
// binary container.
//
// Disparities are quantized to 16-bit fixed point: a sample is
// round((d - MinDisparity) * Scale), and cells without a match are stored as
// InvalidSample. Integer maps use Scale 1 and round-trip exactly; subpixel
// maps use the finest power-of-two scale up to 64 the range allows and
// round-trip within 1/(2*Scale).
//
// The samples are then packed with one of three payload encodings:
//   - None stores them as little-endian uint16
//   - ZIP applies a per-row horizontal predictor, splits the result into
//     high and low byte planes and deflates it with zlib
//   - J2K stores them as a lossless single-component JPEG 2000 codestream
//
// An optional cost plane keeps the float32 match costs next to the samples.
package dispcodec

import (
	"fmt"
	"io"
	"math"

	"github.com/mrjoshuak/go-stereo/disparity"
	"github.com/mrjoshuak/go-stereo/internal/interleave"
	"github.com/mrjoshuak/go-stereo/internal/predictor"
	"github.com/mrjoshuak/go-stereo/internal/xdr"
)

// Compression selects the payload encoding.
type Compression uint8

const (
	// None stores raw little-endian samples.
	None Compression = iota
	// ZIP stores predicted, byte-planed, deflated samples.
	ZIP
	// J2K stores a lossless JPEG 2000 codestream.
	J2K
)

// String returns the name of the compression.
func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case ZIP:
		return "zip"
	case J2K:
		return "j2k"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// Options configures encoding.
type Options struct {
	Compression Compression
	// Level is the zlib level for ZIP payloads and cost planes.
	Level CompressionLevel
	// WithCost stores Map.Cost when the map has one.
	WithCost bool
}

// DefaultOptions returns ZIP compression at the default level without costs.
func DefaultOptions() Options {
	return Options{Compression: ZIP, Level: CompressionLevelDefault}
}

// Marshal encodes m into a new container.
func Marshal(m *disparity.Map, opts Options) ([]byte, error) {
	if m == nil || m.Width <= 0 || m.Height <= 0 {
		return nil, fmt.Errorf("%w: empty map", ErrUnsupported)
	}
	scale, err := ChooseScale(m)
	if err != nil {
		return nil, err
	}

	samples := quantize(m, scale)
	payload, err := encodeSamples(samples, m.Width, m.Height, opts)
	if err != nil {
		return nil, err
	}

	var cost []byte
	if opts.WithCost && m.Cost != nil {
		if cost, err = encodeCost(m, opts); err != nil {
			return nil, err
		}
	}

	h := Header{
		Version:       Version,
		Compression:   opts.Compression,
		Width:         m.Width,
		Height:        m.Height,
		MinDisparity:  m.MinDisparity,
		MaxDisparity:  m.MaxDisparity,
		Scale:         scale,
		PayloadLength: len(payload),
		CostLength:    len(cost),
	}
	if scale > 1 {
		h.Flags |= FlagSubpixel
	}
	if cost != nil {
		h.Flags |= FlagCost
	}

	w := xdr.NewWriter(headerSize + len(payload) + len(cost))
	h.write(w)
	w.PutBytes(payload)
	w.PutBytes(cost)
	return w.Bytes(), nil
}

// Unmarshal decodes a container produced by Marshal.
func Unmarshal(data []byte) (*disparity.Map, error) {
	r := xdr.NewReader(data)
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	payload := r.Bytes(h.PayloadLength)
	samples, err := decodeSamples(payload, h)
	if err != nil {
		return nil, err
	}

	m := disparity.NewMap(h.Width, h.Height, h.MinDisparity, h.MaxDisparity)
	if err := dequantize(m, samples, h.Scale); err != nil {
		return nil, err
	}

	if h.HasCost() {
		section := r.Bytes(h.CostLength)
		if m.Cost, err = decodeCost(section, h); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Encode writes m to w as a container.
func Encode(w io.Writer, m *disparity.Map, opts Options) error {
	data, err := Marshal(m, opts)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Decode reads a container from r.
func Decode(r io.Reader) (*disparity.Map, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// DecodeHeader parses only the container header.
func DecodeHeader(data []byte) (*Header, error) {
	return readHeader(xdr.NewReader(data))
}

func encodeSamples(samples []uint16, width, height int, opts Options) ([]byte, error) {
	switch opts.Compression {
	case None:
		w := xdr.NewWriter(2 * len(samples))
		w.PutUint16s(samples)
		return w.Bytes(), nil
	case ZIP:
		predictor.EncodeRows(samples, width)
		return zlibCompress(interleave.Split(samples, nil), opts.Level)
	case J2K:
		return j2kCompress(samples, width, height)
	default:
		return nil, fmt.Errorf("%w: compression %v", ErrUnsupported, opts.Compression)
	}
}

func decodeSamples(payload []byte, h *Header) ([]uint16, error) {
	n := h.Width * h.Height
	switch h.Compression {
	case None:
		if len(payload) != 2*n {
			return nil, fmt.Errorf("%w: %d payload bytes for %d samples", ErrCorrupted, len(payload), n)
		}
		samples := make([]uint16, n)
		xdr.NewReader(payload).Uint16s(samples)
		return samples, nil
	case ZIP:
		if !inflatable(len(payload), 2*n) {
			return nil, fmt.Errorf("%w: %d payload bytes for %d samples", ErrCorrupted, len(payload), n)
		}
		planes := make([]byte, 2*n)
		if err := zlibDecompressTo(planes, payload); err != nil {
			return nil, err
		}
		samples, err := interleave.Join(planes, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
		}
		predictor.DecodeRows(samples, h.Width)
		return samples, nil
	case J2K:
		return j2kDecompress(payload, h.Width, h.Height)
	default:
		return nil, fmt.Errorf("%w: compression %v", ErrUnsupported, h.Compression)
	}
}

// maxDeflateRatio bounds how far a deflate stream can expand, so a header
// cannot make the decoder allocate far more than its payload could hold.
const maxDeflateRatio = 1032

func inflatable(compressed, size int) bool {
	return size <= maxDeflateRatio*compressed+1024
}

// encodeCost serializes the cost plane as little-endian float32, deflated
// unless the container is uncompressed.
func encodeCost(m *disparity.Map, opts Options) ([]byte, error) {
	w := xdr.NewWriter(4 * m.Width * m.Height)
	for y := 0; y < m.Height; y++ {
		start := y * m.Stride
		w.PutFloat32s(m.Cost[start : start+m.Width])
	}
	if opts.Compression == None {
		return w.Bytes(), nil
	}
	return zlibCompress(w.Bytes(), opts.Level)
}

func decodeCost(section []byte, h *Header) ([]float32, error) {
	n := h.Width * h.Height
	raw := section
	if h.Compression != None {
		if !inflatable(len(section), 4*n) {
			return nil, fmt.Errorf("%w: %d cost bytes for %d cells", ErrCorrupted, len(section), n)
		}
		raw = make([]byte, 4*n)
		if err := zlibDecompressTo(raw, section); err != nil {
			return nil, err
		}
	}
	if len(raw) != 4*n {
		return nil, fmt.Errorf("%w: %d cost bytes for %d cells", ErrCorrupted, len(raw), n)
	}

	cost := make([]float32, n)
	xdr.NewReader(raw).Float32s(cost)
	for _, c := range cost {
		if math.IsNaN(float64(c)) {
			return nil, fmt.Errorf("%w: NaN cost", ErrCorrupted)
		}
	}
	return cost, nil
}
