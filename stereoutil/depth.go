package stereoutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/mrjoshuak/go-stereo/disparity"
)

// ErrBadCamera is returned for non-positive focal lengths or baselines.
var ErrBadCamera = errors.New("stereoutil: focal length and baseline must be positive")

// Camera holds the intrinsics of the rectified left camera and the stereo
// baseline. Depth comes out in the unit of Baseline.
type Camera struct {
	Fx, Fy   float64
	Cx, Cy   float64
	Baseline float64
}

func (c Camera) validate() error {
	if !(c.Fx > 0) || !(c.Fy > 0) || !(c.Baseline > 0) {
		return fmt.Errorf("%w: fx=%g fy=%g baseline=%g", ErrBadCamera, c.Fx, c.Fy, c.Baseline)
	}
	return nil
}

// Depth converts m to depth Z = Baseline*Fx/d, row-major without padding.
// Cells that are invalid or have a non-positive disparity are NaN.
func Depth(m *disparity.Map, c Camera) ([]float64, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	out := make([]float64, m.Width*m.Height)
	for y := 0; y < m.Height; y++ {
		for x, v := range m.Row(y) {
			i := y*m.Width + x
			if !m.IsValid(v) || v <= 0 {
				out[i] = math.NaN()
				continue
			}
			out[i] = c.Baseline * c.Fx / float64(v)
		}
	}
	return out, nil
}

// Point is a 3D point in the rectified left camera frame with the gray level
// of the pixel it came from.
type Point struct {
	X, Y, Z float64
	Gray    uint8
}

// PointCloud back-projects every valid cell of m. Points at or beyond maxZ
// are dropped as likely noise; maxZ <= 0 keeps everything. gray, if not nil,
// must have the shape of m and supplies the point colors.
func PointCloud(m *disparity.Map, c Camera, maxZ float64, gray *disparity.Gray[uint8]) ([]Point, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if gray != nil && (gray.Width != m.Width || gray.Height != m.Height) {
		return nil, fmt.Errorf("%w: %dx%d image for %dx%d map",
			disparity.ErrMapShape, gray.Width, gray.Height, m.Width, m.Height)
	}

	var points []Point
	for y := 0; y < m.Height; y++ {
		for x, v := range m.Row(y) {
			if !m.IsValid(v) || v <= 0 {
				continue
			}
			p := Point{Z: c.Baseline * c.Fx / float64(v)}
			if maxZ > 0 && p.Z >= maxZ {
				continue
			}
			p.X = p.Z * (float64(x) - c.Cx) / c.Fx
			p.Y = p.Z * (float64(y) - c.Cy) / c.Fy
			if gray != nil {
				p.Gray = gray.At(x, y)
			}
			points = append(points, p)
		}
	}
	return points, nil
}

// WritePLY writes points as an ASCII PLY point cloud with gray vertex colors.
func WritePLY(w io.Writer, points []Point) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ply\nformat ascii 1.0\nelement vertex %d\n", len(points))
	fmt.Fprint(bw, "property float x\nproperty float y\nproperty float z\n")
	fmt.Fprint(bw, "property uchar red\nproperty uchar green\nproperty uchar blue\nend_header\n")
	for _, p := range points {
		fmt.Fprintf(bw, "%g %g %g %d %d %d\n", p.X, p.Y, p.Z, p.Gray, p.Gray, p.Gray)
	}
	return bw.Flush()
}
