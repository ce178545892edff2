package dispcodec

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// CompressionLevel is the zlib level used for ZIP payloads and cost planes.
// It ranges from CompressionLevelHuffmanOnly to CompressionLevelBestSize and
// does not affect decoding.
type CompressionLevel int

const (
	CompressionLevelHuffmanOnly CompressionLevel = -2
	CompressionLevelDefault     CompressionLevel = -1
	CompressionLevelNone        CompressionLevel = 0
	CompressionLevelBestSpeed   CompressionLevel = 1
	CompressionLevelBestSize    CompressionLevel = 9
)

func (l CompressionLevel) valid() bool {
	return l >= CompressionLevelHuffmanOnly && l <= CompressionLevelBestSize
}

// deflaters holds idle writers per level, indexed from HuffmanOnly.
var deflaters [CompressionLevelBestSize - CompressionLevelHuffmanOnly + 1]sync.Pool

// inflaters holds idle zlib readers.
var inflaters sync.Pool

// zlibCompress deflates src into a new slice.
func zlibCompress(src []byte, level CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(src)/4 + 64)
	if err := zlibDeflate(&buf, src, level); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// zlibDeflate writes the zlib stream for src to dst with a pooled writer.
// The writer goes back to its pool on every path.
func zlibDeflate(dst io.Writer, src []byte, level CompressionLevel) error {
	if !level.valid() {
		return fmt.Errorf("%w: zlib level %d", ErrUnsupported, level)
	}
	pool := &deflaters[level-CompressionLevelHuffmanOnly]

	zw, _ := pool.Get().(*zlib.Writer)
	if zw == nil {
		var err error
		if zw, err = zlib.NewWriterLevel(dst, int(level)); err != nil {
			return err
		}
	} else {
		zw.Reset(dst)
	}
	defer func() {
		// detach from dst so the pool does not pin it
		zw.Reset(io.Discard)
		pool.Put(zw)
	}()

	if _, err := zw.Write(src); err != nil {
		return err
	}
	return zw.Close()
}

// zlibDecompressTo inflates src into dst, which must be exactly the size of
// the inflated data.
func zlibDecompressTo(dst, src []byte) error {
	if len(src) == 0 {
		if len(dst) != 0 {
			return fmt.Errorf("%w: empty zlib stream", ErrCorrupted)
		}
		return nil
	}

	in := bytes.NewReader(src)
	zr, _ := inflaters.Get().(io.ReadCloser)
	var err error
	if zr == nil {
		zr, err = zlib.NewReader(in)
	} else {
		err = zr.(zlib.Resetter).Reset(in, nil)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	defer inflaters.Put(zr)

	if n, err := io.ReadFull(zr, dst); err != nil {
		return fmt.Errorf("%w: inflated %d bytes, want %d: %v", ErrCorrupted, n, len(dst), err)
	}
	return nil
}
