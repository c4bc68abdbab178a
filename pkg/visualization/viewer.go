package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"pointcloudviz/internal/models"
)

// Viewer renders flat projections of point clouds to images. It is the
// headless counterpart of the interactive 3D scatter plot.
type Viewer struct {
	// size is the edge length of the square output image in pixels
	size int

	// colorMin and colorMax pin the color scale, as in the scatter plot
	colorMin float64
	colorMax float64
}

// NewViewer creates a new projection viewer
func NewViewer(size int, colorMin, colorMax float64) *Viewer {
	return &Viewer{size: size, colorMin: colorMin, colorMax: colorMax}
}

// planeAxes returns the horizontal, vertical and depth columns for plane
func planeAxes(c models.Cloud, plane string) (h, v, d []float64, err error) {
	switch plane {
	case "xy", "XY":
		return c.X, c.Y, c.Z, nil
	case "xz", "XZ":
		return c.X, c.Z, c.Y, nil
	case "yz", "YZ":
		return c.Y, c.Z, c.X, nil
	}
	return nil, nil, nil, fmt.Errorf("invalid plane: %s (must be xy, xz, or yz)", plane)
}

// ExtractProjection projects the cloud orthographically onto plane and
// draws every point as a square of markerSize/5 pixels radius. Points
// farther along the depth axis are drawn first.
func (v *Viewer) ExtractProjection(c models.Cloud, plane string, markerSize int) (image.Image, error) {
	if v.size <= 0 {
		return nil, fmt.Errorf("image size must be positive")
	}
	h, vert, depth, err := planeAxes(c, plane)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, v.size, v.size))
	bg := color.RGBA{R: 230, G: 230, B: 230, A: 255}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = bg.R, bg.G, bg.B, bg.A
	}
	if c.Len() == 0 {
		return img, nil
	}

	hMin, hMax := bounds(h)
	vMin, vMax := bounds(vert)
	span := math.Max(hMax-hMin, vMax-vMin)
	if span == 0 {
		span = 1
	}
	// keep the aspect ratio and leave a 5% border
	scale := 0.9 * float64(v.size-1) / span
	hOff := (float64(v.size-1) - (hMax-hMin)*scale) / 2
	vOff := (float64(v.size-1) - (vMax-vMin)*scale) / 2

	order := make([]int, c.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return depth[order[a]] > depth[order[b]] })

	radius := markerSize / 5
	for _, i := range order {
		px := int(math.Round(hOff + (h[i]-hMin)*scale))
		// image rows grow downwards
		py := v.size - 1 - int(math.Round(vOff+(vert[i]-vMin)*scale))
		col := ColorFor(c.Color[i], v.colorMin, v.colorMax)
		for y := py - radius; y <= py+radius; y++ {
			for x := px - radius; x <= px+radius; x++ {
				if x >= 0 && y >= 0 && x < v.size && y < v.size {
					img.SetRGBA(x, y, col)
				}
			}
		}
	}

	return img, nil
}

func bounds(data []float64) (min, max float64) {
	min, max = data[0], data[0]
	for _, x := range data {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	return min, max
}

// WritePNG encodes img as PNG to w
func (v *Viewer) WritePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// SaveProjection saves an extracted projection as a PNG image
func (v *Viewer) SaveProjection(img image.Image, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return v.WritePNG(file, img)
}
