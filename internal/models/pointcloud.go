package models

import (
	"fmt"
	"math"
	"strings"
)

// DefaultCloudSize is the number of points in every precomputed cloud
const DefaultCloudSize = 1024

// SubjectType partitions the dataset into healthy controls and
// Alzheimer's disease patients. Interpolation never crosses it.
type SubjectType string

const (
	Healthy SubjectType = "HC"
	AD      SubjectType = "AD"
)

// SubjectTypes lists the known subject types in display order
var SubjectTypes = []SubjectType{Healthy, AD}

// ParseSubjectType accepts the dataset labels ("HC", "AD") as well as
// a few human spellings.
func ParseSubjectType(s string) (SubjectType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HC", "HEALTHY", "CONTROL":
		return Healthy, nil
	case "AD", "ALZHEIMERS", "PATIENT":
		return AD, nil
	}
	return "", fmt.Errorf("unknown subject type %q", s)
}

func (s SubjectType) String() string { return string(s) }

// Point is a single (x, y, z, color) sample of a cloud
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Color float64 `json:"color"`
}

// Cloud stores an ordered point cloud column by column so the
// interpolation code can blend whole attributes at once.
//
// Point i of one cloud corresponds to point i of every other cloud in
// the dataset. The generator emits points in the same topological order
// for every grid cell, and blending relies on it.
type Cloud struct {
	X     []float64
	Y     []float64
	Z     []float64
	Color []float64
}

// NewCloud allocates a zeroed cloud with n points
func NewCloud(n int) Cloud {
	return Cloud{
		X:     make([]float64, n),
		Y:     make([]float64, n),
		Z:     make([]float64, n),
		Color: make([]float64, n),
	}
}

// CloudFromPoints converts row-oriented points into a columnar cloud
func CloudFromPoints(points []Point) Cloud {
	c := NewCloud(len(points))
	for i, p := range points {
		c.X[i], c.Y[i], c.Z[i], c.Color[i] = p.X, p.Y, p.Z, p.Color
	}
	return c
}

// Len returns the number of points in the cloud
func (c Cloud) Len() int { return len(c.X) }

// At returns point i
func (c Cloud) At(i int) Point {
	return Point{X: c.X[i], Y: c.Y[i], Z: c.Z[i], Color: c.Color[i]}
}

// Points returns the cloud as a row-oriented slice
func (c Cloud) Points() []Point {
	out := make([]Point, c.Len())
	for i := range out {
		out[i] = c.At(i)
	}
	return out
}

// Clone returns a deep copy of the cloud
func (c Cloud) Clone() Cloud {
	return Cloud{
		X:     append([]float64(nil), c.X...),
		Y:     append([]float64(nil), c.Y...),
		Z:     append([]float64(nil), c.Z...),
		Color: append([]float64(nil), c.Color...),
	}
}

// Columns returns the four attribute columns in x, y, z, color order
func (c Cloud) Columns() [4][]float64 {
	return [4][]float64{c.X, c.Y, c.Z, c.Color}
}

// GridKey identifies one precomputed cloud. Coordinates are quantized to
// a fixed number of decimals so that 2.3 and 2.3000000001 are the same cell.
type GridKey struct {
	Subject SubjectType
	Z0      int64
	Z1      int64
}

// Quantize maps a coordinate onto the integer lattice used by GridKey
func Quantize(v float64, decimals int) int64 {
	return int64(math.Round(v * math.Pow10(decimals)))
}

// NewGridKey builds the key for (subject, z0, z1)
func NewGridKey(subject SubjectType, z0, z1 float64, decimals int) GridKey {
	return GridKey{
		Subject: subject,
		Z0:      Quantize(z0, decimals),
		Z1:      Quantize(z1, decimals),
	}
}

// GridPoint is one precomputed sample of the dataset. It is never
// modified after the store has been built.
type GridPoint struct {
	// Subject is the partition this sample belongs to
	Subject SubjectType

	// Z0 and Z1 are the grid-aligned latent coordinates
	Z0, Z1 float64

	// Cloud holds the ordered points of the sample
	Cloud Cloud
}

// Query is a request for a cloud at arbitrary latent coordinates, already
// shifted into grid space.
type Query struct {
	Subject SubjectType
	Z0      float64
	Z1      float64
}

// RoundTo rounds v to the given number of decimals
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}

// QueryFromSlider converts raw slider values to grid coordinates. The
// slider range is displayed shifted by offset relative to the grid, and the
// result is rounded so it can be compared with grid coordinates.
func QueryFromSlider(subject SubjectType, z0, z1, offset float64, decimals int) Query {
	return Query{
		Subject: subject,
		Z0:      RoundTo(z0+offset, decimals),
		Z1:      RoundTo(z1+offset, decimals),
	}
}

// ReconstructedCloud is the output of a single reconstruction. It is
// produced per request and never cached.
type ReconstructedCloud struct {
	// Subject is the partition the cloud was built from
	Subject SubjectType `json:"subject"`

	// Z0 and Z1 are the grid-space coordinates the cloud was built for
	Z0 float64 `json:"z0"`
	Z1 float64 `json:"z1"`

	// Method names the interpolation path that produced the cloud
	Method string `json:"method"`

	// Cloud holds the reconstructed points
	Cloud Cloud `json:"-"`
}
