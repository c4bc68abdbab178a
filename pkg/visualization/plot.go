// Package visualization turns reconstructed point clouds into renderer
// agnostic 3D scatter-plot descriptions, PNG projections and point picks.
package visualization

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"pointcloudviz/internal/models"
	"pointcloudviz/pkg/dataset"
)

// ErrInvalidMarkerSize is returned for marker sizes the plotter does not offer
var ErrInvalidMarkerSize = errors.New("invalid marker size")

const backgroundColor = "rgb(230, 230, 230)"

// Vec3 is a point or direction in scene coordinates
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Marker describes how every scatter point is drawn
type Marker struct {
	Size    int     `json:"size"`
	Opacity float64 `json:"opacity"`
}

// Colorbar labels the color channel
type Colorbar struct {
	Title string `json:"title"`
}

// AxisStyle is the styling of one scene axis
type AxisStyle struct {
	Title           string `json:"title"`
	Type            string `json:"type"`
	ShowBackground  bool   `json:"showbackground"`
	BackgroundColor string `json:"backgroundcolor"`
	GridColor       string `json:"gridcolor"`
	ZeroLineColor   string `json:"zerolinecolor"`
}

// Camera positions the viewer in the scene
type Camera struct {
	Up     Vec3 `json:"up"`
	Center Vec3 `json:"center"`
	Eye    Vec3 `json:"eye"`
}

// Scene groups the axes and camera of a 3D plot
type Scene struct {
	XAxis  AxisStyle `json:"xaxis"`
	YAxis  AxisStyle `json:"yaxis"`
	ZAxis  AxisStyle `json:"zaxis"`
	Camera Camera    `json:"camera"`
}

// Margin in pixels around the plot area
type Margin struct {
	L int `json:"l"`
	B int `json:"b"`
	T int `json:"t"`
	R int `json:"r"`
}

// Layout holds the fixed, query independent part of the plot
type Layout struct {
	Margin     Margin `json:"margin"`
	HoverMode  string `json:"hovermode"`
	UIRevision string `json:"uirevision"`
	ShowLegend bool   `json:"showlegend"`
	Scene      Scene  `json:"scene"`
}

// PlotDescription is everything a 3D scatter renderer needs to draw a
// reconstructed cloud.
type PlotDescription struct {
	Subject    models.SubjectType `json:"subject"`
	Method     string             `json:"method"`
	Points     []models.Point     `json:"points"`
	ColorRange [2]float64         `json:"colorRange"`
	ColorScale string             `json:"colorScale"`
	Marker     Marker             `json:"marker"`
	Colorbar   Colorbar           `json:"colorbar"`
	Layout     Layout             `json:"layout"`
}

// Options configures a Plotter
type Options struct {
	ColorScale    string
	ColorbarTitle string
	Opacity       float64

	// MarkerSizes restricts the accepted marker sizes. Empty accepts any
	// positive size.
	MarkerSizes []int
}

// DefaultOptions returns the stock explorer look: Cividis, 0.7 opacity, marker sizes 5 to 25
func DefaultOptions() Options {
	return Options{
		ColorScale:    "Cividis",
		ColorbarTitle: "Distance<br>from mean",
		Opacity:       0.7,
		MarkerSizes:   []int{5, 10, 15, 20, 25},
	}
}

// Plotter builds plot descriptions. The color range is fixed at
// construction to the range of the whole dataset so that a given color
// means the same value in every query.
type Plotter struct {
	colorMin float64
	colorMax float64
	opts     Options
}

// NewPlotter creates a plotter with a pinned color range
func NewPlotter(colorMin, colorMax float64, opts Options) *Plotter {
	return &Plotter{colorMin: colorMin, colorMax: colorMax, opts: opts}
}

// NewPlotterForStore pins the color range to the store's global range
func NewPlotterForStore(store *dataset.Store, opts Options) *Plotter {
	lo, hi := store.ColorRange()
	return NewPlotter(lo, hi, opts)
}

// ColorRange returns the pinned color range
func (p *Plotter) ColorRange() (min, max float64) { return p.colorMin, p.colorMax }

// MarkerSizes returns the offered marker sizes, nil when any size is accepted
func (p *Plotter) MarkerSizes() []int {
	if len(p.opts.MarkerSizes) == 0 {
		return nil
	}
	return append([]int(nil), p.opts.MarkerSizes...)
}

// MarkerSizeAllowed reports whether size may be used with this plotter
func (p *Plotter) MarkerSizeAllowed(size int) bool {
	if size <= 0 {
		return false
	}
	if len(p.opts.MarkerSizes) == 0 {
		return true
	}
	for _, s := range p.opts.MarkerSizes {
		if s == size {
			return true
		}
	}
	return false
}

// Render describes rc as a 3D scatter plot. It has no side effects.
func (p *Plotter) Render(rc *models.ReconstructedCloud, markerSize int) (*PlotDescription, error) {
	if rc == nil {
		return nil, errors.New("nil cloud")
	}
	if !p.MarkerSizeAllowed(markerSize) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMarkerSize, markerSize)
	}

	return &PlotDescription{
		Subject:    rc.Subject,
		Method:     rc.Method,
		Points:     rc.Cloud.Points(),
		ColorRange: [2]float64{p.colorMin, p.colorMax},
		ColorScale: p.opts.ColorScale,
		Marker:     Marker{Size: markerSize, Opacity: p.opts.Opacity},
		Colorbar:   Colorbar{Title: p.opts.ColorbarTitle},
		Layout:     defaultLayout(),
	}, nil
}

func axisTemplate(title string) AxisStyle {
	return AxisStyle{
		Title:           title,
		Type:            "linear",
		ShowBackground:  true,
		BackgroundColor: backgroundColor,
		GridColor:       "rgb(255, 255, 255)",
		ZeroLineColor:   "rgb(255, 255, 255)",
	}
}

func defaultLayout() Layout {
	return Layout{
		Margin:     Margin{L: 40, B: 40, T: 10, R: 10},
		HoverMode:  "closest",
		UIRevision: "same",
		ShowLegend: false,
		Scene: Scene{
			XAxis: axisTemplate("x"),
			YAxis: axisTemplate("y"),
			ZAxis: axisTemplate("z"),
			Camera: Camera{
				Up:     Vec3{Z: 1},
				Center: Vec3{},
				Eye:    Vec3{X: 0.08, Y: 2.2, Z: 0.08},
			},
		},
	}
}

// SliderLabel formats the value display next to a slider, e.g. "z0 = 0.5"
func SliderLabel(name string, value float64) string {
	return name + " = " + strconv.FormatFloat(value, 'f', -1, 64)
}

// Slider describes one latent-axis slider in display coordinates
type Slider struct {
	Min   float64   `json:"min"`
	Max   float64   `json:"max"`
	Value float64   `json:"value"`
	Step  float64   `json:"step"`
	Marks []float64 `json:"marks"`
}

// SliderFor derives a slider from an axis of the dataset. Display values
// are grid values minus offset; the initial position is the axis mean.
func SliderFor(axis dataset.AxisSummary, offset float64) Slider {
	s := Slider{
		Min:   axis.Min - offset,
		Max:   axis.Max - offset,
		Value: axis.Mean - offset,
		Step:  0.1,
	}
	for m := math.Ceil(s.Min); m <= math.Floor(s.Max); m++ {
		s.Marks = append(s.Marks, m)
	}
	return s
}
