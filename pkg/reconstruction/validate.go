package reconstruction

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"pointcloudviz/internal/models"
	"pointcloudviz/pkg/interpolation"
)

// ValidationMetrics measures how well linear interpolation predicts the
// grid itself. Every cell with a neighbour on both sides along an axis is
// predicted as the midpoint blend of those neighbours and compared with
// its stored cloud.
type ValidationMetrics struct {
	// Subject the metrics were computed for
	Subject models.SubjectType `json:"subject"`

	// Samples is the number of cells predicted (a cell may count once per axis)
	Samples int `json:"samples"`

	// PositionRMSE is the root mean square euclidean distance between
	// predicted and stored points.
	PositionRMSE float64 `json:"positionRmse"`

	// MaxPositionError is the largest single point distance
	MaxPositionError float64 `json:"maxPositionError"`

	// ColorRMSE is the root mean square error of the color value
	ColorRMSE float64 `json:"colorRmse"`
}

// Validate computes ValidationMetrics for one subject. Cells lacking a
// neighbour are skipped, so a sparse grid yields fewer samples, and a grid
// without interior cells yields zero samples.
func (r *Reconstructor) Validate(subject models.SubjectType) (ValidationMetrics, error) {
	vm := ValidationMetrics{Subject: subject}
	var posSq, colSq []float64

	mid := interpolation.Axis{WFloor: 0.5, WCeil: 0.5}
	for _, gp := range r.store.Cells(subject) {
		pairs := [][2]GridCoord{
			{{Z0: gp.Z0 - 1, Z1: gp.Z1}, {Z0: gp.Z0 + 1, Z1: gp.Z1}},
			{{Z0: gp.Z0, Z1: gp.Z1 - 1}, {Z0: gp.Z0, Z1: gp.Z1 + 1}},
		}
		for _, pair := range pairs {
			lo, okLo := r.store.Lookup(subject, pair[0].Z0, pair[0].Z1)
			hi, okHi := r.store.Lookup(subject, pair[1].Z0, pair[1].Z1)
			if !okLo || !okHi {
				continue
			}

			predicted, err := interpolation.Linear(lo.Cloud, hi.Cloud, mid)
			if err != nil {
				return ValidationMetrics{}, err
			}
			if predicted.Len() != gp.Cloud.Len() {
				return ValidationMetrics{}, interpolation.ErrLengthMismatch
			}

			for i := 0; i < predicted.Len(); i++ {
				dx := predicted.X[i] - gp.Cloud.X[i]
				dy := predicted.Y[i] - gp.Cloud.Y[i]
				dz := predicted.Z[i] - gp.Cloud.Z[i]
				dc := predicted.Color[i] - gp.Cloud.Color[i]
				posSq = append(posSq, dx*dx+dy*dy+dz*dz)
				colSq = append(colSq, dc*dc)
			}
			vm.Samples++
		}
	}

	if vm.Samples == 0 {
		return vm, nil
	}

	vm.PositionRMSE = math.Sqrt(stat.Mean(posSq, nil))
	vm.MaxPositionError = math.Sqrt(floats.Max(posSq))
	vm.ColorRMSE = math.Sqrt(stat.Mean(colSq, nil))
	return vm, nil
}
