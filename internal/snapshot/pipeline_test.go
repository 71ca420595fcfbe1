package snapshot

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glintlabs/glint/internal/shared/types"
)

// renderRaster builds a PNG with a single marker pixel so tests can verify
// which source region ended up in the crop.
func renderRaster(w, h int, marker image.Point) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 10, B: 10, A: 255})
		}
	}
	img.Set(marker.X, marker.Y, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func decodeCrop(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func containsMarker(img image.Image) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			if r > 0x8000 {
				return true
			}
		}
	}
	return false
}

func TestCropScaleDerivedFromImageNotConstant(t *testing.T) {
	p := NewPipeline(Config{RegionSize: 100})
	viewport := types.Size{Width: 400, Height: 300}

	// Captured image is 2x the reported viewport in both axes. The marker
	// sits at image pixel (400, 300), i.e. CSS point (200, 150).
	raster := renderRaster(800, 600, image.Pt(400, 300))

	snap, err := p.Crop(raster, viewport, types.Point{X: 200, Y: 150})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, snap.Scale, 0.01)

	crop := decodeCrop(t, snap.Image)
	// 100 CSS px at 2x scale is a 200px crop.
	assert.Equal(t, 200, crop.Bounds().Dx())
	assert.Equal(t, 200, crop.Bounds().Dy())
	assert.True(t, containsMarker(crop), "dwell point pixel missing from crop")
}

func TestCropMismatchedAxesStillCoversPoint(t *testing.T) {
	p := NewPipeline(Config{RegionSize: 80})
	viewport := types.Size{Width: 500, Height: 400}

	// 1.5x horizontal, 2x vertical: heterogeneous densities.
	raster := renderRaster(750, 800, image.Pt(300, 400))

	snap, err := p.Crop(raster, viewport, types.Point{X: 200, Y: 200})
	require.NoError(t, err)
	assert.True(t, containsMarker(decodeCrop(t, snap.Image)))
}

func TestCropClampsToViewportEdges(t *testing.T) {
	p := NewPipeline(Config{RegionSize: 100})
	viewport := types.Size{Width: 400, Height: 300}
	raster := renderRaster(400, 300, image.Pt(5, 5))

	snap, err := p.Crop(raster, viewport, types.Point{X: 0, Y: 0})
	require.NoError(t, err)

	// The region shifts inward instead of extending past the origin.
	assert.Equal(t, 0.0, snap.Region.X)
	assert.Equal(t, 0.0, snap.Region.Y)
	assert.Equal(t, 100.0, snap.Region.W)
	assert.True(t, containsMarker(decodeCrop(t, snap.Image)))
}

func TestCropRejectsGarbage(t *testing.T) {
	p := NewPipeline(DefaultConfig())
	viewport := types.Size{Width: 400, Height: 300}

	_, err := p.Crop(nil, viewport, types.Point{X: 1, Y: 1})
	assert.Error(t, err)

	_, err = p.Crop([]byte("definitely not an image"), viewport, types.Point{X: 1, Y: 1})
	assert.Error(t, err)

	_, err = p.Crop(renderRaster(10, 10, image.Pt(1, 1)), types.Size{}, types.Point{X: 1, Y: 1})
	assert.Error(t, err)
}

func TestRegionSmallerThanViewportStaysSquare(t *testing.T) {
	p := NewPipeline(Config{RegionSize: 500})
	viewport := types.Size{Width: 300, Height: 200}
	raster := renderRaster(300, 200, image.Pt(150, 100))

	snap, err := p.Crop(raster, viewport, types.Point{X: 150, Y: 100})
	require.NoError(t, err)
	// Region shrinks to the viewport when the viewport is smaller.
	assert.Equal(t, 300.0, snap.Region.W)
	assert.Equal(t, 200.0, snap.Region.H)
}
