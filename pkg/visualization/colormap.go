package visualization

import (
	"image/color"
	"math"
	"sort"

	"pointcloudviz/pkg/interpolation"
)

type colorStop struct {
	pos     float64
	r, g, b float64
}

// cividis control points as published with plotly's "Cividis" scale
var cividis = []colorStop{
	{0.000000, 0, 32, 76},
	{0.058824, 0, 42, 102},
	{0.117647, 0, 52, 110},
	{0.176471, 39, 63, 108},
	{0.235294, 60, 74, 107},
	{0.294118, 76, 85, 107},
	{0.352941, 91, 95, 109},
	{0.411765, 104, 106, 112},
	{0.470588, 117, 117, 117},
	{0.529412, 131, 129, 120},
	{0.588235, 146, 140, 120},
	{0.647059, 161, 152, 118},
	{0.705882, 176, 165, 114},
	{0.764706, 192, 177, 109},
	{0.823529, 209, 191, 102},
	{0.882353, 225, 204, 92},
	{0.941176, 243, 219, 79},
	{1.000000, 255, 233, 69},
}

// Cividis maps t in [0, 1] onto the cividis ramp. Values outside the unit
// interval are clamped.
func Cividis(t float64) color.RGBA {
	if math.IsNaN(t) || t <= 0 {
		return stopColor(cividis[0])
	}
	if t >= 1 {
		return stopColor(cividis[len(cividis)-1])
	}

	i := sort.Search(len(cividis), func(i int) bool { return cividis[i].pos >= t })
	lo, hi := cividis[i-1], cividis[i]
	a := interpolation.Axis{WCeil: (t - lo.pos) / (hi.pos - lo.pos)}
	a.WFloor = 1 - a.WCeil

	return color.RGBA{
		R: uint8(math.Round(interpolation.Lerp(lo.r, hi.r, a.WFloor, a.WCeil))),
		G: uint8(math.Round(interpolation.Lerp(lo.g, hi.g, a.WFloor, a.WCeil))),
		B: uint8(math.Round(interpolation.Lerp(lo.b, hi.b, a.WFloor, a.WCeil))),
		A: 255,
	}
}

func stopColor(s colorStop) color.RGBA {
	return color.RGBA{R: uint8(s.r), G: uint8(s.g), B: uint8(s.b), A: 255}
}

// ColorFor normalizes v into [min, max] and maps it onto the cividis ramp.
// A degenerate range maps everything to the middle of the ramp.
func ColorFor(v, min, max float64) color.RGBA {
	if max <= min {
		return Cividis(0.5)
	}
	return Cividis((v - min) / (max - min))
}
