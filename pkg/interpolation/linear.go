// Package interpolation blends index-aligned point clouds.
//
// Clouds are blended column by column: point i of the result is the
// weighted sum of point i of each input. No nearest-neighbour matching is
// attempted, so inputs must share a point ordering.
package interpolation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"pointcloudviz/internal/models"
)

// ErrLengthMismatch is returned when clouds of different sizes are blended
var ErrLengthMismatch = errors.New("clouds have different lengths")

// Axis holds the bracketing grid values of a coordinate on a unit-spaced
// grid and the weights given to the clouds at those values.
type Axis struct {
	Value  float64
	Floor  float64
	Ceil   float64
	WFloor float64
	WCeil  float64
}

// alignTolerance absorbs float noise such as 2.0000000004 so that it does
// not pull in the next grid line
const alignTolerance = 1e-9

// NewAxis brackets v between floor(v) and ceil(v). The floor cloud is
// weighted by ceil(v)-v and the ceil cloud by v-floor(v). For a grid-aligned
// v both bounds coincide and the whole weight goes to the floor.
func NewAxis(v float64) Axis {
	if r := math.Round(v); math.Abs(v-r) < alignTolerance {
		return Axis{Value: v, Floor: r, Ceil: r, WFloor: 1}
	}
	a := Axis{Value: v, Floor: math.Floor(v), Ceil: math.Ceil(v)}
	a.WFloor = a.Ceil - v
	a.WCeil = v - a.Floor
	return a
}

// Aligned reports whether the value sits exactly on a grid line
func (a Axis) Aligned() bool { return a.Floor == a.Ceil }

// Sum returns the total weight, which is 1 up to rounding
func (a Axis) Sum() float64 { return a.WFloor + a.WCeil }

// Lerp returns wLo*lo + wHi*hi for scalars
func Lerp(lo, hi, wLo, wHi float64) float64 {
	return wLo*lo + wHi*hi
}

// LerpInto writes wLo*lo + wHi*hi into dst for every attribute column.
// dst must have the same length as lo and hi.
func LerpInto(dst, lo, hi models.Cloud, wLo, wHi float64) error {
	if lo.Len() != hi.Len() || dst.Len() != lo.Len() {
		return fmt.Errorf("%w: %d, %d into %d", ErrLengthMismatch, lo.Len(), hi.Len(), dst.Len())
	}

	d, l, h := dst.Columns(), lo.Columns(), hi.Columns()
	for c := range d {
		floats.ScaleTo(d[c], wLo, l[c])
		floats.AddScaled(d[c], wHi, h[c])
	}
	return nil
}

// Linear blends two clouds along one axis. lo is the cloud at a.Floor and
// hi the cloud at a.Ceil.
func Linear(lo, hi models.Cloud, a Axis) (models.Cloud, error) {
	out := models.NewCloud(lo.Len())
	if err := LerpInto(out, lo, hi, a.WFloor, a.WCeil); err != nil {
		return models.Cloud{}, err
	}
	return out, nil
}

// Corners are the four clouds surrounding an off-grid (z0, z1). The first
// index is the z0 side and the second the z1 side, so C01 sits at
// (floor z0, ceil z1).
type Corners struct {
	C00, C01, C10, C11 models.Cloud
}

// Bilinear blends the corners first along z0, giving one edge at floor z1
// and one at ceil z1, then blends the two edges along z1. Position and
// color are interpolated alike.
func Bilinear(c Corners, a0, a1 Axis) (models.Cloud, error) {
	n := c.C00.Len()
	for _, other := range []models.Cloud{c.C01, c.C10, c.C11} {
		if other.Len() != n {
			return models.Cloud{}, fmt.Errorf("%w: corner sizes %d, %d, %d, %d",
				ErrLengthMismatch, c.C00.Len(), c.C01.Len(), c.C10.Len(), c.C11.Len())
		}
	}

	lower := models.NewCloud(n)
	upper := models.NewCloud(n)
	if err := LerpInto(lower, c.C00, c.C10, a0.WFloor, a0.WCeil); err != nil {
		return models.Cloud{}, err
	}
	if err := LerpInto(upper, c.C01, c.C11, a0.WFloor, a0.WCeil); err != nil {
		return models.Cloud{}, err
	}

	// reuse lower as the destination; ScaleTo reads before it writes each element
	if err := LerpInto(lower, lower, upper, a1.WFloor, a1.WCeil); err != nil {
		return models.Cloud{}, err
	}
	return lower, nil
}
