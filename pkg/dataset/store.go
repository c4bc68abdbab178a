// Package dataset holds the precomputed point clouds the viewer interpolates
// between. A Store is built once at startup and is read-only afterwards, so
// any number of goroutines may query it without locking.
package dataset

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"pointcloudviz/internal/models"
)

// ErrEmptyDataset is returned when a store would contain no clouds
var ErrEmptyDataset = errors.New("dataset contains no point clouds")

// Record is one row of the columnar table: a single point of the cloud
// stored at (Subject, Z0, Z1).
type Record struct {
	Subject models.SubjectType
	Z0      float64
	Z1      float64
	Point   models.Point
}

// Options controls how records are grouped into grid cells
type Options struct {
	// CloudSize is the number of points every cell must contain.
	// Zero disables the check.
	CloudSize int

	// Decimals is the precision used to match grid coordinates
	Decimals int
}

// DefaultOptions matches the shipped dataset
func DefaultOptions() Options {
	return Options{CloudSize: models.DefaultCloudSize, Decimals: 2}
}

// AxisSummary describes the range of one latent axis
type AxisSummary struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// Summary describes the loaded dataset
type Summary struct {
	Subjects []models.SubjectType `json:"subjects"`
	Cells    int                  `json:"cells"`
	Points   int                  `json:"points"`
	Z0       AxisSummary          `json:"z0"`
	Z1       AxisSummary          `json:"z1"`
	ColorMin float64              `json:"colorMin"`
	ColorMax float64              `json:"colorMax"`
}

// Store is the immutable in-memory table of grid clouds
type Store struct {
	opts     Options
	cells    map[models.GridKey]*models.GridPoint
	order    []models.GridKey
	colorMin float64
	colorMax float64
	summary  Summary
}

// NewStore groups records into grid cells. Records belonging to the same
// cell keep their relative order, which defines point correspondence
// across cells.
func NewStore(records []Record, opts Options) (*Store, error) {
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	s := &Store{
		opts:  opts,
		cells: make(map[models.GridKey]*models.GridPoint),
	}

	colors := make([]float64, len(records))
	for i, rec := range records {
		key := models.NewGridKey(rec.Subject, rec.Z0, rec.Z1, opts.Decimals)
		gp, ok := s.cells[key]
		if !ok {
			gp = &models.GridPoint{
				Subject: rec.Subject,
				Z0:      models.RoundTo(rec.Z0, opts.Decimals),
				Z1:      models.RoundTo(rec.Z1, opts.Decimals),
			}
			s.cells[key] = gp
			s.order = append(s.order, key)
		}
		gp.Cloud.X = append(gp.Cloud.X, rec.Point.X)
		gp.Cloud.Y = append(gp.Cloud.Y, rec.Point.Y)
		gp.Cloud.Z = append(gp.Cloud.Z, rec.Point.Z)
		gp.Cloud.Color = append(gp.Cloud.Color, rec.Point.Color)
		colors[i] = rec.Point.Color
	}

	if opts.CloudSize > 0 {
		for _, key := range s.order {
			gp := s.cells[key]
			if n := gp.Cloud.Len(); n != opts.CloudSize {
				return nil, fmt.Errorf("cell (%s, z0=%g, z1=%g) has %d points, expected %d",
					gp.Subject, gp.Z0, gp.Z1, n, opts.CloudSize)
			}
		}
	}

	s.colorMin = floats.Min(colors)
	s.colorMax = floats.Max(colors)
	s.summary = s.summarize(len(records))

	return s, nil
}

func (s *Store) summarize(points int) Summary {
	z0 := make([]float64, len(s.order))
	z1 := make([]float64, len(s.order))
	weights := make([]float64, len(s.order))
	seen := make(map[models.SubjectType]bool)

	for i, key := range s.order {
		gp := s.cells[key]
		z0[i], z1[i] = gp.Z0, gp.Z1
		weights[i] = float64(gp.Cloud.Len())
		seen[gp.Subject] = true
	}

	var subjects []models.SubjectType
	for _, st := range models.SubjectTypes {
		if seen[st] {
			subjects = append(subjects, st)
		}
	}

	// Means are weighted by cloud size so they equal the per-row mean of
	// the columnar table.
	return Summary{
		Subjects: subjects,
		Cells:    len(s.order),
		Points:   points,
		Z0:       AxisSummary{Min: floats.Min(z0), Max: floats.Max(z0), Mean: stat.Mean(z0, weights)},
		Z1:       AxisSummary{Min: floats.Min(z1), Max: floats.Max(z1), Mean: stat.Mean(z1, weights)},
		ColorMin: s.colorMin,
		ColorMax: s.colorMax,
	}
}

// Lookup returns the cloud stored exactly at (subject, z0, z1). The
// returned GridPoint must not be modified.
func (s *Store) Lookup(subject models.SubjectType, z0, z1 float64) (*models.GridPoint, bool) {
	gp, ok := s.cells[models.NewGridKey(subject, z0, z1, s.opts.Decimals)]
	return gp, ok
}

// ColorRange returns the global minimum and maximum color value
func (s *Store) ColorRange() (min, max float64) {
	return s.colorMin, s.colorMax
}

// Summary describes the dataset
func (s *Store) Summary() Summary {
	out := s.summary
	out.Subjects = append([]models.SubjectType(nil), s.summary.Subjects...)
	return out
}

// Decimals returns the grid matching precision
func (s *Store) Decimals() int { return s.opts.Decimals }

// CloudSize returns the configured number of points per cell
func (s *Store) CloudSize() int { return s.opts.CloudSize }

// Cells returns the grid points of one subject ordered by z0 then z1
func (s *Store) Cells(subject models.SubjectType) []*models.GridPoint {
	var out []*models.GridPoint
	for _, key := range s.order {
		if key.Subject == subject {
			out = append(out, s.cells[key])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Z0 != out[j].Z0 {
			return out[i].Z0 < out[j].Z0
		}
		return out[i].Z1 < out[j].Z1
	})
	return out
}
