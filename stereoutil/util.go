// Package stereoutil provides utility functions built on disparity maps.
//
// This package offers higher-level operations for working with the output of
// the disparity engine, including statistics, map comparison, visualization,
// depth and point cloud conversion, and file helpers for the dispcodec
// container.
//
// Example usage:
//
//	m, _ := stereoutil.ReadFile("scene.dsp")
//	s := stereoutil.ComputeStats(m)
//	fmt.Printf("%.1f%% valid, disparity %.2f..%.2f\n", 100*s.ValidFraction, s.Min, s.Max)
//
//	img := stereoutil.ToGray(m)
package stereoutil

import (
	"fmt"
	"image"
	"math"
	"os"

	"github.com/mrjoshuak/go-stereo/disparity"
	"github.com/mrjoshuak/go-stereo/dispcodec"
)

// ===========================================
// Statistics
// ===========================================

// Stats summarizes the valid cells of a disparity map.
type Stats struct {
	Cells         int
	Valid         int
	ValidFraction float64
	Min           float64
	Max           float64
	Mean          float64
}

// ComputeStats returns statistics over the valid cells of m. Min, Max and
// Mean are NaN when no cell is valid.
func ComputeStats(m *disparity.Map) Stats {
	s := Stats{
		Cells: m.Width * m.Height,
		Min:   math.Inf(1),
		Max:   math.Inf(-1),
	}
	var sum float64
	for y := 0; y < m.Height; y++ {
		for _, v := range m.Row(y) {
			if !m.IsValid(v) {
				continue
			}
			d := float64(v)
			s.Valid++
			sum += d
			s.Min = math.Min(s.Min, d)
			s.Max = math.Max(s.Max, d)
		}
	}
	if s.Valid == 0 {
		s.Min, s.Max, s.Mean = math.NaN(), math.NaN(), math.NaN()
		return s
	}
	s.ValidFraction = float64(s.Valid) / float64(s.Cells)
	s.Mean = sum / float64(s.Valid)
	return s
}

// ===========================================
// Comparison
// ===========================================

// CompareOptions configures map comparison behavior.
type CompareOptions struct {
	Tolerance   float32 // Maximum allowed difference between valid cells
	IgnoreRange bool    // If true, differing disparity ranges are not reported
}

// CompareResult describes how two maps differ.
type CompareResult struct {
	// ValidityMismatches counts cells valid in one map but not the other.
	ValidityMismatches int
	// ValueMismatches counts cells valid in both that differ by more than
	// the tolerance.
	ValueMismatches int
	// MaxDiff is the largest difference between cells valid in both maps.
	MaxDiff float32
}

// Compare checks whether two maps are equivalent within tolerance.
// Returns true if they match, along with any differences found.
func Compare(a, b *disparity.Map, opts CompareOptions) (bool, []string, CompareResult) {
	var diffs []string
	var res CompareResult

	if a.Width != b.Width || a.Height != b.Height {
		diffs = append(diffs, fmt.Sprintf("dimensions differ: %dx%d vs %dx%d",
			a.Width, a.Height, b.Width, b.Height))
		return false, diffs, res
	}
	if !opts.IgnoreRange && (a.MinDisparity != b.MinDisparity || a.MaxDisparity != b.MaxDisparity) {
		diffs = append(diffs, fmt.Sprintf("disparity range differs: [%d, %d) vs [%d, %d)",
			a.MinDisparity, a.MaxDisparity, b.MinDisparity, b.MaxDisparity))
	}

	for y := 0; y < a.Height; y++ {
		ra, rb := a.Row(y), b.Row(y)
		for x := range ra {
			va, vb := a.IsValid(ra[x]), b.IsValid(rb[x])
			if va != vb {
				res.ValidityMismatches++
				continue
			}
			if !va {
				continue
			}
			diff := ra[x] - rb[x]
			if diff < 0 {
				diff = -diff
			}
			if diff > res.MaxDiff {
				res.MaxDiff = diff
			}
			if diff > opts.Tolerance {
				res.ValueMismatches++
			}
		}
	}

	if res.ValidityMismatches > 0 {
		diffs = append(diffs, fmt.Sprintf("%d cells differ in validity", res.ValidityMismatches))
	}
	if res.ValueMismatches > 0 {
		diffs = append(diffs, fmt.Sprintf("%d cells differ (max diff: %f)", res.ValueMismatches, res.MaxDiff))
	}
	return len(diffs) == 0, diffs, res
}

// CompareFiles checks if two container files hold equivalent maps.
func CompareFiles(path1, path2 string, opts CompareOptions) (bool, []string, error) {
	a, err := ReadFile(path1)
	if err != nil {
		return false, nil, fmt.Errorf("cannot read %s: %w", path1, err)
	}
	b, err := ReadFile(path2)
	if err != nil {
		return false, nil, fmt.Errorf("cannot read %s: %w", path2, err)
	}
	ok, diffs, _ := Compare(a, b, opts)
	return ok, diffs, nil
}

// ===========================================
// Visualization
// ===========================================

// ToGray renders m as an 8-bit image. Valid cells map linearly from
// [MinDisparity, MaxDisparity) onto [1, 255]; invalid cells are 0.
func ToGray(m *disparity.Map) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	scale := 254 / float64(max(m.Range()-1, 1))
	for y := 0; y < m.Height; y++ {
		dst := img.Pix[y*img.Stride : y*img.Stride+m.Width]
		for x, v := range m.Row(y) {
			if !m.IsValid(v) {
				dst[x] = 0
				continue
			}
			g := 1 + (float64(v)-float64(m.MinDisparity))*scale
			dst[x] = uint8(math.Round(math.Max(1, math.Min(g, 255))))
		}
	}
	return img
}

// ===========================================
// File Helpers
// ===========================================

// FileInfo provides a summary of a disparity map container file.
type FileInfo struct {
	Path         string
	Width        int
	Height       int
	MinDisparity int
	MaxDisparity int
	Compression  dispcodec.Compression
	Scale        int
	Subpixel     bool
	HasCost      bool
	FileSize     int64
}

// GetFileInfo returns summary information about a container file without
// decoding its samples.
func GetFileInfo(path string) (*FileInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	h, err := dispcodec.DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	return &FileInfo{
		Path:         path,
		Width:        h.Width,
		Height:       h.Height,
		MinDisparity: h.MinDisparity,
		MaxDisparity: h.MaxDisparity,
		Compression:  h.Compression,
		Scale:        h.Scale,
		Subpixel:     h.Subpixel(),
		HasCost:      h.HasCost(),
		FileSize:     int64(len(data)),
	}, nil
}

// ReadFile decodes a container file.
func ReadFile(path string) (*disparity.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return dispcodec.Unmarshal(data)
}

// WriteFile encodes m into a container file.
func WriteFile(path string, m *disparity.Map, opts dispcodec.Options) error {
	data, err := dispcodec.Marshal(m, opts)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
