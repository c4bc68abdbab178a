package reconstruction

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointcloudviz/internal/models"
)

func TestValidateExactForBilinearField(t *testing.T) {
	r := NewReconstructor(buildStore(t, []float64{0, 1, 2}, pointAt), nil)

	vm, err := r.Validate(models.Healthy)
	require.NoError(t, err)

	// three interior cells along each axis
	assert.Equal(t, 6, vm.Samples)
	assert.InDelta(t, 0, vm.PositionRMSE, 1e-12)
	assert.InDelta(t, 0, vm.ColorRMSE, 1e-12)
	assert.InDelta(t, 0, vm.MaxPositionError, 1e-12)
}

func TestValidateMeasuresCurvature(t *testing.T) {
	field := func(z0, z1 float64, i int) models.Point {
		return models.Point{Color: z0 * z0}
	}
	r := NewReconstructor(buildStore(t, []float64{0, 1, 2}, field), nil)

	vm, err := r.Validate(models.Healthy)
	require.NoError(t, err)

	// along z0 the midpoint of 0 and 4 is 2 against a stored 1; along z1
	// the prediction is exact
	assert.Equal(t, 6, vm.Samples)
	assert.InDelta(t, math.Sqrt(0.5), vm.ColorRMSE, 1e-12)
	assert.InDelta(t, 0, vm.PositionRMSE, 1e-12)
}

func TestValidateSkipsCellsWithoutNeighbours(t *testing.T) {
	r := NewReconstructor(buildStore(t, []float64{0, 1}, pointAt), nil)

	vm, err := r.Validate(models.Healthy)
	require.NoError(t, err)
	assert.Equal(t, 0, vm.Samples)

	vm, err = r.Validate(models.AD)
	require.NoError(t, err)
	assert.Equal(t, 0, vm.Samples)
	assert.Equal(t, models.AD, vm.Subject)
}
