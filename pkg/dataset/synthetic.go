package dataset

import (
	"math"

	"pointcloudviz/internal/models"
)

// SyntheticOptions describes a generated dataset
type SyntheticOptions struct {
	Subjects  []models.SubjectType
	Z0, Z1    []float64
	CloudSize int
}

// DefaultSyntheticOptions mirrors the layout of the shipped dataset: a 5x5
// grid over [0, 4] for both subject types.
func DefaultSyntheticOptions() SyntheticOptions {
	grid := []float64{0, 1, 2, 3, 4}
	return SyntheticOptions{
		Subjects:  models.SubjectTypes,
		Z0:        grid,
		Z1:        grid,
		CloudSize: models.DefaultCloudSize,
	}
}

// Synthetic generates a deterministic dataset of deformed ellipsoids. Every
// cloud samples the surface with the same Fibonacci ordering, so point i is
// the same surface location in every cell. Color is the distance of the
// point from its position in the mean shape.
func Synthetic(opts SyntheticOptions) []Record {
	n := opts.CloudSize
	golden := math.Pi * (3 - math.Sqrt(5))

	var records []Record
	for _, subject := range opts.Subjects {
		atrophy := 1.0
		if subject == models.AD {
			atrophy = 0.85
		}
		for _, z0 := range opts.Z0 {
			for _, z1 := range opts.Z1 {
				for i := 0; i < n; i++ {
					// unit sphere point
					y := 1 - 2*(float64(i)+0.5)/float64(n)
					r := math.Sqrt(1 - y*y)
					theta := golden * float64(i)
					ux, uz := r*math.Cos(theta), r*math.Sin(theta)

					// mean shape, then deformation driven by the latent coordinates
					mx, my, mz := 3*ux, 1.2*y, 1.0*uz
					sx := 1 + 0.08*(z0-2)
					sz := 1 + 0.05*(z1-2)
					bend := 0.15 * (z1 - 2) * ux * ux
					px := mx * sx * atrophy
					py := my*atrophy + bend
					pz := mz * sz * atrophy

					dx, dy, dz := px-mx, py-my, pz-mz
					records = append(records, Record{
						Subject: subject,
						Z0:      z0,
						Z1:      z1,
						Point: models.Point{
							X:     px,
							Y:     py,
							Z:     pz,
							Color: math.Sqrt(dx*dx + dy*dy + dz*dz),
						},
					})
				}
			}
		}
	}
	return records
}
