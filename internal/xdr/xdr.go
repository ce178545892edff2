// Package xdr reads and writes the little-endian fields of the disparity map
// container.
//
// Reader keeps the first error it hits and returns zero values from then on,
// so a header can be parsed field by field and checked once with Err.
package xdr

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	// ErrShortBuffer is returned when a read runs past the end of the data.
	ErrShortBuffer = errors.New("xdr: buffer too short")

	// ErrNegativeSize is returned when a size parameter is negative.
	ErrNegativeSize = errors.New("xdr: negative size")
)

var le = binary.LittleEndian

// Reader decodes fields from a byte slice.
type Reader struct {
	data []byte
	pos  int
	err  error
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.data) - r.pos
}

// Pos returns the current read offset.
func (r *Reader) Pos() int {
	return r.pos
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error {
	return r.err
}

// take advances past n bytes and returns them, or nil once the reader failed.
func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 {
		r.err = ErrNegativeSize
		return nil
	}
	if n > r.Len() {
		r.err = ErrShortBuffer
		return nil
	}
	b := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return b
}

// Bytes returns the next n bytes without copying them.
func (r *Reader) Bytes(n int) []byte {
	return r.take(n)
}

// Uint8 reads one byte.
func (r *Reader) Uint8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

// Uint16 reads a little-endian uint16.
func (r *Reader) Uint16() uint16 {
	if b := r.take(2); b != nil {
		return le.Uint16(b)
	}
	return 0
}

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32() uint32 {
	if b := r.take(4); b != nil {
		return le.Uint32(b)
	}
	return 0
}

// Int32 reads a little-endian two's complement int32.
func (r *Reader) Int32() int32 {
	return int32(r.Uint32())
}

// Float32 reads a little-endian IEEE 754 float32.
func (r *Reader) Float32() float32 {
	return math.Float32frombits(r.Uint32())
}

// Uint16s fills dst with consecutive uint16 values.
func (r *Reader) Uint16s(dst []uint16) {
	b := r.take(2 * len(dst))
	if b == nil {
		return
	}
	for i := range dst {
		dst[i] = le.Uint16(b[2*i:])
	}
}

// Float32s fills dst with consecutive float32 values.
func (r *Reader) Float32s(dst []float32) {
	b := r.take(4 * len(dst))
	if b == nil {
		return
	}
	for i := range dst {
		dst[i] = math.Float32frombits(le.Uint32(b[4*i:]))
	}
}

// Writer appends fields to a growing buffer.
type Writer struct {
	buf []byte
}

// NewWriter creates a Writer with an initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the written data.
// The returned slice is valid until the next write.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Reset discards the written data and keeps the buffer.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}

// PutBytes appends b verbatim.
func (w *Writer) PutBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// PutUint8 appends one byte.
func (w *Writer) PutUint8(v uint8) {
	w.buf = append(w.buf, v)
}

// PutUint16 appends a little-endian uint16.
func (w *Writer) PutUint16(v uint16) {
	w.buf = le.AppendUint16(w.buf, v)
}

// PutUint32 appends a little-endian uint32.
func (w *Writer) PutUint32(v uint32) {
	w.buf = le.AppendUint32(w.buf, v)
}

// PutInt32 appends a little-endian two's complement int32.
func (w *Writer) PutInt32(v int32) {
	w.PutUint32(uint32(v))
}

// PutFloat32 appends a little-endian IEEE 754 float32.
func (w *Writer) PutFloat32(v float32) {
	w.PutUint32(math.Float32bits(v))
}

// PutUint16s appends every value of s.
func (w *Writer) PutUint16s(s []uint16) {
	for _, v := range s {
		w.buf = le.AppendUint16(w.buf, v)
	}
}

// PutFloat32s appends every value of s.
func (w *Writer) PutFloat32s(s []float32) {
	for _, v := range s {
		w.buf = le.AppendUint32(w.buf, math.Float32bits(v))
	}
}
