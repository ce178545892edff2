// Package interleave splits 16-bit samples into byte planes and back.
//
// Quantized disparities of neighboring pixels share their high byte far more
// often than their low byte. Grouping all high bytes together, followed by all
// low bytes, gives the compressor long runs to work with:
//
//	Input:  [A, B, C, D]                      (4 samples)
//	Output: [Ahi, Bhi, Chi, Dhi, Alo, Blo, Clo, Dlo]
package interleave

import "errors"

// ErrOddLength is returned when a plane buffer cannot hold whole samples.
var ErrOddLength = errors.New("interleave: plane data has odd length")

// Split writes the high-byte plane followed by the low-byte plane of samples
// to out and returns it. If out is too small, a new buffer is allocated.
func Split(samples []uint16, out []byte) []byte {
	n := len(samples)
	if cap(out) < 2*n {
		out = make([]byte, 2*n)
	}
	out = out[:2*n]

	hi, lo := out[:n], out[n:]
	for i, s := range samples {
		hi[i] = byte(s >> 8)
		lo[i] = byte(s)
	}
	return out
}

// Join reverses Split. If out is too small, a new buffer is allocated.
func Join(planes []byte, out []uint16) ([]uint16, error) {
	if len(planes)%2 != 0 {
		return nil, ErrOddLength
	}
	n := len(planes) / 2
	if cap(out) < n {
		out = make([]uint16, n)
	}
	out = out[:n]

	hi, lo := planes[:n], planes[n:]
	for i := range out {
		out[i] = uint16(hi[i])<<8 | uint16(lo[i])
	}
	return out, nil
}
