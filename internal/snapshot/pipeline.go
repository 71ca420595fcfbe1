package snapshot

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"

	_ "image/jpeg" // raster decode support

	"github.com/gabriel-vasile/mimetype"

	"github.com/glintlabs/glint/internal/shared/types"
)

// Snapshot is one cropped region image around a dwell point. It lives for
// a single orchestration request and is never persisted.
type Snapshot struct {
	// Region is the cropped area in CSS pixels, viewport-relative.
	Region types.Rect
	// Image is the PNG-encoded crop.
	Image []byte
	// Scale is the horizontal captured-pixels-per-CSS-pixel ratio that was
	// actually measured for this capture.
	Scale float64
}

// Config tunes the crop.
type Config struct {
	// RegionSize is the square crop edge length in CSS pixels.
	RegionSize float64
}

// DefaultConfig returns the production crop settings.
func DefaultConfig() Config {
	return Config{RegionSize: 320}
}

// Pipeline crops full-viewport rasters down to the region around a dwell
// point. The raster comes from the privileged host surface; this package
// never captures pixels itself.
type Pipeline struct {
	cfg Config
}

// NewPipeline creates a pipeline.
func NewPipeline(cfg Config) *Pipeline {
	if cfg.RegionSize <= 0 {
		cfg.RegionSize = DefaultConfig().RegionSize
	}
	return &Pipeline{cfg: cfg}
}

// Crop decodes a full-viewport raster and returns the square region
// centered on the point, clamped to viewport bounds.
//
// The crop scale is computed per axis from the ratio of actual image
// pixels to the reported viewport size, never from an assumed constant, so
// the result stays correct across zoom levels and pixel densities.
func (p *Pipeline) Crop(raster []byte, viewport types.Size, pt types.Point) (*Snapshot, error) {
	if len(raster) == 0 {
		return nil, fmt.Errorf("empty raster")
	}
	if viewport.Width <= 0 || viewport.Height <= 0 {
		return nil, fmt.Errorf("invalid viewport %vx%v", viewport.Width, viewport.Height)
	}

	mtype := mimetype.Detect(raster)
	if !mtype.Is("image/png") && !mtype.Is("image/jpeg") {
		return nil, fmt.Errorf("unsupported raster type %s", mtype.String())
	}

	img, _, err := image.Decode(bytes.NewReader(raster))
	if err != nil {
		return nil, fmt.Errorf("decode raster: %w", err)
	}

	bounds := img.Bounds()
	scaleX := float64(bounds.Dx()) / viewport.Width
	scaleY := float64(bounds.Dy()) / viewport.Height

	region := clampRegion(pt, p.cfg.RegionSize, viewport)

	crop := image.Rect(
		int(math.Round(region.X*scaleX)),
		int(math.Round(region.Y*scaleY)),
		int(math.Round((region.X+region.W)*scaleX)),
		int(math.Round((region.Y+region.H)*scaleY)),
	).Intersect(bounds)
	if crop.Empty() {
		return nil, fmt.Errorf("crop region empty")
	}

	out := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(out, out.Bounds(), img, crop.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}

	return &Snapshot{
		Region: region,
		Image:  buf.Bytes(),
		Scale:  scaleX,
	}, nil
}

// clampRegion centers a square of the given edge on the point and shifts
// it to stay inside the viewport, shrinking only when the viewport itself
// is smaller than the region.
func clampRegion(pt types.Point, edge float64, viewport types.Size) types.Rect {
	w := math.Min(edge, viewport.Width)
	h := math.Min(edge, viewport.Height)

	x := pt.X - w/2
	y := pt.Y - h/2
	x = math.Max(0, math.Min(x, viewport.Width-w))
	y = math.Max(0, math.Min(y, viewport.Height-h))

	return types.Rect{X: x, Y: y, W: w, H: h}
}
