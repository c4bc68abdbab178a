package visualization

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointcloudviz/internal/models"
)

// TestCividis verifies the end points and monotonic brightening of the ramp
func TestCividis(t *testing.T) {
	lo := Cividis(0)
	hi := Cividis(1)
	if lo.R != 0 || lo.G != 32 || lo.B != 76 {
		t.Errorf("Expected rgb(0,32,76) at 0, got %v", lo)
	}
	if hi.R != 255 || hi.G != 233 || hi.B != 69 {
		t.Errorf("Expected rgb(255,233,69) at 1, got %v", hi)
	}

	assert.Equal(t, lo, Cividis(-3), "values below the range are clamped")
	assert.Equal(t, hi, Cividis(42), "values above the range are clamped")

	prev := -1
	for i := 0; i <= 20; i++ {
		c := Cividis(float64(i) / 20)
		if int(c.G) < prev {
			t.Errorf("Expected non-decreasing green channel, got %d after %d", c.G, prev)
		}
		prev = int(c.G)
	}

	mid := Cividis(0.470588)
	assert.Equal(t, uint8(117), mid.R)
	assert.Equal(t, Cividis(0.5), ColorFor(3, 3, 3))
}

// TestExtractProjection verifies the image size and that points land on the image
func TestExtractProjection(t *testing.T) {
	cloud := models.CloudFromPoints([]models.Point{
		{X: 0, Y: 0, Z: 0, Color: 0},
		{X: 1, Y: 1, Z: 1, Color: 1},
	})
	viewer := NewViewer(64, 0, 1)

	img, err := viewer.ExtractProjection(cloud, "xy", 5)
	require.NoError(t, err)

	bounds := img.Bounds()
	if bounds.Dx() != 64 || bounds.Dy() != 64 {
		t.Fatalf("Expected 64x64 image, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	rgba, ok := img.(*image.RGBA)
	require.True(t, ok)

	// the low corner maps to the bottom left of the drawing area and is
	// colored with the bottom of the ramp
	low := rgba.RGBAAt(3, 60)
	assert.Equal(t, Cividis(0), low)
	high := rgba.RGBAAt(60, 3)
	assert.Equal(t, Cividis(1), high)

	// the center of the image is background
	center := rgba.RGBAAt(32, 32)
	assert.Equal(t, uint8(230), center.R)
}

func TestExtractProjectionDepthOrder(t *testing.T) {
	// two points project onto the same pixel; the one with the larger z is
	// farther away and must be hidden
	cloud := models.CloudFromPoints([]models.Point{
		{X: 0, Y: 0, Z: -1, Color: 1},
		{X: 0, Y: 0, Z: 5, Color: 0},
		{X: 1, Y: 1, Z: 0, Color: 0.5},
	})
	img, err := NewViewer(32, 0, 1).ExtractProjection(cloud, "XY", 0)
	require.NoError(t, err)

	rgba := img.(*image.RGBA)
	assert.Equal(t, Cividis(1), rgba.RGBAAt(2, 29))
}

func TestExtractProjectionErrors(t *testing.T) {
	cloud := models.CloudFromPoints([]models.Point{{}})

	_, err := NewViewer(32, 0, 1).ExtractProjection(cloud, "xw", 5)
	if err == nil {
		t.Error("Expected error for invalid plane, got nil")
	}

	_, err = NewViewer(0, 0, 1).ExtractProjection(cloud, "xy", 5)
	if err == nil {
		t.Error("Expected error for zero image size, got nil")
	}

	img, err := NewViewer(8, 0, 1).ExtractProjection(models.Cloud{}, "yz", 5)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
}

// TestSaveProjection verifies that projections are written as decodable PNGs
func TestSaveProjection(t *testing.T) {
	cloud := models.CloudFromPoints([]models.Point{{X: 1, Y: 2, Z: 3}, {X: 2, Y: 1, Z: 0, Color: 1}})
	viewer := NewViewer(16, 0, 1)

	img, err := viewer.ExtractProjection(cloud, "xz", 10)
	require.NoError(t, err)

	filename := filepath.Join(t.TempDir(), "out", "projection.png")
	require.NoError(t, viewer.SaveProjection(img, filename))

	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}
