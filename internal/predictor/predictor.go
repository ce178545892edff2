// Package predictor implements the horizontal differencing predictor applied
// to quantized disparity rows before compression.
//
// The predictor converts absolute sample values to differences from the
// previous sample of the same row. Disparity maps are piecewise smooth, so
// most differences are zero or small and the byte planes that follow compress
// far better than the raw samples.
package predictor

// Sample is the set of element types the predictor works on.
// Arithmetic wraps, so every encoding is exactly reversible.
type Sample interface {
	~uint8 | ~uint16
}

// Encode applies horizontal differencing to data in place.
// The first sample remains unchanged, subsequent samples become
// differences from their predecessor.
func Encode[T Sample](data []T) {
	n := len(data)
	if n < 2 {
		return
	}

	// Work backwards to preserve values we need
	// Process in chunks of 8 for better pipelining
	i := n - 1
	for ; i >= 8; i -= 8 {
		data[i] = data[i] - data[i-1]
		data[i-1] = data[i-1] - data[i-2]
		data[i-2] = data[i-2] - data[i-3]
		data[i-3] = data[i-3] - data[i-4]
		data[i-4] = data[i-4] - data[i-5]
		data[i-5] = data[i-5] - data[i-6]
		data[i-6] = data[i-6] - data[i-7]
		data[i-7] = data[i-7] - data[i-8]
	}

	for ; i >= 1; i-- {
		data[i] = data[i] - data[i-1]
	}
}

// Decode reverses horizontal differencing in place.
// Each sample becomes the sum of itself and all previous samples.
func Decode[T Sample](data []T) {
	n := len(data)
	if n < 2 {
		return
	}

	// prefix sum, 8 at a time
	i := 1
	for ; i+7 < n; i += 8 {
		data[i] += data[i-1]
		data[i+1] += data[i]
		data[i+2] += data[i+1]
		data[i+3] += data[i+2]
		data[i+4] += data[i+3]
		data[i+5] += data[i+4]
		data[i+6] += data[i+5]
		data[i+7] += data[i+6]
	}

	for ; i < n; i++ {
		data[i] += data[i-1]
	}
}

// EncodeRows applies Encode to each row of a row-major buffer independently,
// so a row can be restored without decoding the rows above it.
func EncodeRows[T Sample](data []T, rowLen int) {
	if rowLen < 2 {
		return
	}
	for start := 0; start < len(data); start += rowLen {
		end := min(start+rowLen, len(data))
		Encode(data[start:end])
	}
}

// DecodeRows reverses EncodeRows.
func DecodeRows[T Sample](data []T, rowLen int) {
	if rowLen < 2 {
		return
	}
	for start := 0; start < len(data); start += rowLen {
		end := min(start+rowLen, len(data))
		Decode(data[start:end])
	}
}
