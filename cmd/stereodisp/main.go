// stereodisp computes a dense disparity map from a rectified stereo pair.
//
// The left and right images may be PNG, JPEG, GIF, WebP, BMP or TIFF. Color
// images are converted to gray. When the right image differs in size from the
// left it is resampled to match.
//
// The output format is chosen from the output file extension:
//
//	.dsp   disparity container (see -c for the payload compression)
//	.j2k   disparity container with a lossless JPEG 2000 payload
//	.png   8-bit visualization, invalid pixels black
//	.ply   point cloud, requires -fx and -baseline
//
// Usage:
//
//	stereodisp [options] left right outfile
//
// Options:
//
//	-v              verbose output
//	-config <file>  JSON engine configuration; explicit flags override it
//	-min, -max      disparity range [min, max)
//	-r, -rx, -ry    matching window radius
//	-region <type>  five or rect
//	-error <type>   sad or ssd
//	-pixel <type>   u8, u16 or f32 working precision
//	-c <type>       container compression (none, zip, j2k)
//	-version        show version information
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Registered decoders for input images.
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/nfnt/resize"

	"github.com/mrjoshuak/go-stereo/disparity"
	"github.com/mrjoshuak/go-stereo/dispcodec"
	"github.com/mrjoshuak/go-stereo/stereoutil"
)

const version = "1.0.0"

type options struct {
	verbose     bool
	pixel       string
	scale       float64
	compression dispcodec.Compression
	withCost    bool
	camera      stereoutil.Camera
	maxZ        float64
}

func main() {
	// Define flags
	verbose := flag.Bool("v", false, "verbose output")
	configPath := flag.String("config", "", "JSON engine configuration file")
	showVersion := flag.Bool("version", false, "show version information")

	minD := flag.Int("min", 0, "minimum disparity (inclusive)")
	maxD := flag.Int("max", 64, "maximum disparity (exclusive)")
	radius := flag.Int("r", 2, "matching window radius, sets -rx and -ry")
	rx := flag.Int("rx", 2, "horizontal window radius")
	ry := flag.Int("ry", 2, "vertical window radius")
	region := flag.String("region", "five", "matching region (five, rect)")
	errType := flag.String("error", "sad", "pixel error (sad, ssd)")
	subpixel := flag.Bool("subpixel", true, "refine disparities to subpixel accuracy")
	texture := flag.Float64("texture", 0.1, "texture threshold, 0 disables")
	maxErr := flag.Float64("maxerr", -1, "maximum window cost, negative disables")
	rtl := flag.Int("rtl", -1, "right to left tolerance, negative disables")
	workers := flag.Int("workers", 0, "worker goroutines, 0 uses all CPUs")
	band := flag.Int("band", 0, "rows per work band, 0 picks a default")

	pixel := flag.String("pixel", "u8", "working precision (u8, u16, f32)")
	scale := flag.Float64("scale", 1, "resize both inputs by this factor before matching")
	compressionStr := flag.String("c", "zip", "container compression (none, zip, j2k)")
	withCost := flag.Bool("cost", false, "store the matching cost plane in .dsp output")

	fx := flag.Float64("fx", 0, "focal length in pixels for .ply output")
	fy := flag.Float64("fy", 0, "vertical focal length, defaults to -fx")
	cx := flag.Float64("cx", -1, "principal point x, defaults to the image center")
	cy := flag.Float64("cy", -1, "principal point y, defaults to the image center")
	baseline := flag.Float64("baseline", 0, "stereo baseline for .ply output")
	maxZ := flag.Float64("maxz", 0, "drop points at or beyond this depth, 0 uses 100 baselines")

	// Custom usage function
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: stereodisp [options] left right outfile\n\n")
		fmt.Fprintf(os.Stderr, "Compute a disparity map from a rectified stereo pair.\n\n")
		fmt.Fprintf(os.Stderr, "The output format follows the outfile extension:\n")
		fmt.Fprintf(os.Stderr, "  .dsp  disparity container\n")
		fmt.Fprintf(os.Stderr, "  .j2k  disparity container, JPEG 2000 payload\n")
		fmt.Fprintf(os.Stderr, "  .png  8-bit visualization\n")
		fmt.Fprintf(os.Stderr, "  .ply  point cloud (requires -fx and -baseline)\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	// Handle version request
	if *showVersion {
		fmt.Printf("stereodisp version %s\n", version)
		fmt.Println("Part of go-stereo - https://github.com/mrjoshuak/go-stereo")
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) != 3 {
		flag.Usage()
		os.Exit(1)
	}

	cfg := disparity.DefaultConfig()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			fatalf("cannot read config: %v", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			fatalf("cannot parse config %s: %v", *configPath, err)
		}
	}

	// Explicit flags win over the config file
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min":
			cfg.MinDisparity = *minD
		case "max":
			cfg.MaxDisparity = *maxD
		case "r":
			cfg.RadiusX, cfg.RadiusY = *radius, *radius
		case "rx":
			cfg.RadiusX = *rx
		case "ry":
			cfg.RadiusY = *ry
		case "region":
			cfg.Region, flagErr = parseRegion(*region)
		case "error":
			cfg.Error, flagErr = parseError(*errType)
		case "subpixel":
			cfg.Select.Mode = disparity.SelectInteger
			if *subpixel {
				cfg.Select.Mode = disparity.SelectSubpixel
			}
		case "texture":
			cfg.Select.TextureThreshold = *texture
		case "maxerr":
			cfg.Select.MaxError = *maxErr
		case "rtl":
			cfg.Select.RightToLeftTolerance = *rtl
		case "workers":
			cfg.Parallel.NumWorkers = *workers
		case "band":
			cfg.Parallel.BandHeight = *band
		}
		if flagErr != nil {
			fatalf("%v", flagErr)
		}
	})

	compression, err := parseCompression(*compressionStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Valid options are: none, zip, j2k\n")
		os.Exit(1)
	}
	if *withCost {
		cfg.Select.RecordCost = true
	}

	opts := options{
		verbose:     *verbose,
		pixel:       *pixel,
		scale:       *scale,
		compression: compression,
		withCost:    *withCost,
		camera: stereoutil.Camera{
			Fx: *fx, Fy: *fy, Cx: *cx, Cy: *cy, Baseline: *baseline,
		},
		maxZ: *maxZ,
	}

	if err := run(args[0], args[1], args[2], cfg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func parseRegion(s string) (disparity.RegionType, error) {
	switch strings.ToLower(s) {
	case "five":
		return disparity.RegionFive, nil
	case "rect":
		return disparity.RegionRect, nil
	}
	return 0, fmt.Errorf("invalid region type: %s", s)
}

func parseError(s string) (disparity.ErrorType, error) {
	switch strings.ToLower(s) {
	case "sad":
		return disparity.ErrorSAD, nil
	case "ssd":
		return disparity.ErrorSSD, nil
	}
	return 0, fmt.Errorf("invalid error type: %s", s)
}

func parseCompression(s string) (dispcodec.Compression, error) {
	switch strings.ToLower(s) {
	case "none":
		return dispcodec.None, nil
	case "zip":
		return dispcodec.ZIP, nil
	case "j2k":
		return dispcodec.J2K, nil
	}
	return 0, fmt.Errorf("invalid compression type: %s", s)
}

func run(leftFile, rightFile, outFile string, cfg disparity.Config, opts options) error {
	left, err := loadImage(leftFile, opts.verbose)
	if err != nil {
		return err
	}
	right, err := loadImage(rightFile, opts.verbose)
	if err != nil {
		return err
	}

	if opts.scale <= 0 {
		return fmt.Errorf("invalid scale: %g", opts.scale)
	}
	if opts.scale != 1 {
		w := uint(float64(left.Bounds().Dx())*opts.scale + 0.5)
		left = resize.Resize(w, 0, left, resize.Bicubic)
		right = resize.Resize(w, 0, right, resize.Bicubic)
		if opts.verbose {
			fmt.Printf("  Resized to %dx%d\n", left.Bounds().Dx(), left.Bounds().Dy())
		}
	}
	if left.Bounds().Size() != right.Bounds().Size() {
		if opts.verbose {
			fmt.Printf("  Resampling right image from %v to %v\n",
				right.Bounds().Size(), left.Bounds().Size())
		}
		right = resample(right, left.Bounds().Dx(), left.Bounds().Dy())
	}

	if opts.verbose {
		fmt.Printf("Matching %s region, %s error, disparities [%d, %d), radius %dx%d\n",
			cfg.Region, cfg.Error, cfg.MinDisparity, cfg.MaxDisparity, cfg.RadiusX, cfg.RadiusY)
	}

	start := time.Now()
	m, err := compute(left, right, cfg, opts.pixel)
	if err != nil {
		return err
	}

	if opts.verbose {
		fmt.Printf("  Matched in %v\n", time.Since(start).Round(time.Millisecond))
		s := stereoutil.ComputeStats(m)
		fmt.Printf("  Valid: %d of %d (%.1f%%)\n", s.Valid, s.Cells, 100*s.ValidFraction)
		if s.Valid > 0 {
			fmt.Printf("  Disparity: min %.3f, max %.3f, mean %.3f\n", s.Min, s.Max, s.Mean)
		}
	}

	if err := write(outFile, m, left, opts); err != nil {
		return err
	}
	if opts.verbose {
		fmt.Printf("Wrote %s\n", outFile)
	}
	return nil
}

func loadImage(path string, verbose bool) (image.Image, error) {
	if verbose {
		fmt.Printf("Reading file %s\n", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open input file: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("cannot decode %s: %w", path, err)
	}
	if verbose {
		fmt.Printf("  %s %dx%d\n", format, img.Bounds().Dx(), img.Bounds().Dy())
	}
	return img, nil
}

// resample scales img to width x height, keeping 16 bits of gray precision.
func resample(img image.Image, width, height int) image.Image {
	dst := image.NewGray16(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

func compute(left, right image.Image, cfg disparity.Config, pixel string) (*disparity.Map, error) {
	switch pixel {
	case "u8":
		e, err := disparity.NewU8(cfg)
		if err != nil {
			return nil, err
		}
		return e.Process(disparity.GrayFromImage(left), disparity.GrayFromImage(right))
	case "u16":
		e, err := disparity.NewU16(cfg)
		if err != nil {
			return nil, err
		}
		return e.Process(disparity.Gray16FromImage(left), disparity.Gray16FromImage(right))
	case "f32":
		e, err := disparity.NewF32(cfg)
		if err != nil {
			return nil, err
		}
		return e.Process(disparity.Float32FromImage(left), disparity.Float32FromImage(right))
	}
	return nil, fmt.Errorf("invalid pixel type: %s", pixel)
}

func write(outFile string, m *disparity.Map, left image.Image, opts options) error {
	switch ext := strings.ToLower(filepath.Ext(outFile)); ext {
	case ".dsp", ".j2k":
		compression := opts.compression
		if ext == ".j2k" {
			compression = dispcodec.J2K
		}
		err := stereoutil.WriteFile(outFile, m, dispcodec.Options{
			Compression: compression,
			Level:       dispcodec.CompressionLevelDefault,
			WithCost:    opts.withCost,
		})
		if err != nil {
			return fmt.Errorf("cannot write %s: %w", outFile, err)
		}
		if opts.verbose {
			if info, err := stereoutil.GetFileInfo(outFile); err == nil {
				fmt.Printf("  %s compression, scale %d, %d bytes\n",
					info.Compression, info.Scale, info.FileSize)
			}
		}
		return nil

	case ".png":
		f, err := os.Create(outFile)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		if err := png.Encode(f, stereoutil.ToGray(m)); err != nil {
			f.Close()
			return fmt.Errorf("cannot write %s: %w", outFile, err)
		}
		return f.Close()

	case ".ply":
		c := opts.camera
		if c.Fy <= 0 {
			c.Fy = c.Fx
		}
		if c.Cx < 0 {
			c.Cx = float64(m.Width) / 2
		}
		if c.Cy < 0 {
			c.Cy = float64(m.Height) / 2
		}
		maxZ := opts.maxZ
		if maxZ == 0 {
			maxZ = 100 * c.Baseline
		}
		points, err := stereoutil.PointCloud(m, c, maxZ, disparity.GrayFromImage(left))
		if err != nil {
			return err
		}
		if opts.verbose {
			fmt.Printf("  %d points\n", len(points))
		}
		f, err := os.Create(outFile)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		if err := stereoutil.WritePLY(f, points); err != nil {
			f.Close()
			return fmt.Errorf("cannot write %s: %w", outFile, err)
		}
		return f.Close()

	default:
		return fmt.Errorf("unsupported output extension %q (use .dsp, .j2k, .png or .ply)", ext)
	}
}
