package visualization

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointcloudviz/internal/models"
)

func TestPickerNearest(t *testing.T) {
	cloud := models.CloudFromPoints([]models.Point{
		{X: 0, Y: 0, Z: 0, Color: 0.1},
		{X: 5, Y: 5, Z: 5, Color: 0.2},
		{X: 1, Y: 0, Z: 0, Color: 0.3},
	})
	p := NewPicker(cloud)

	pick, ok := p.Nearest(0.9, 0.1, 0)
	require.True(t, ok)
	assert.Equal(t, 2, pick.Index)
	assert.Equal(t, 0.3, pick.Point.Color)
	assert.InDelta(t, math.Sqrt(0.02), pick.Distance, 1e-12)
}

func TestPickerMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	points := make([]models.Point, 500)
	for i := range points {
		points[i] = models.Point{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
	}
	cloud := models.CloudFromPoints(points)
	p := NewPicker(cloud)

	for q := 0; q < 50; q++ {
		x, y, z := rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()

		best, bestD := -1, math.Inf(1)
		for i, pt := range points {
			d := math.Sqrt((pt.X-x)*(pt.X-x) + (pt.Y-y)*(pt.Y-y) + (pt.Z-z)*(pt.Z-z))
			if d < bestD {
				best, bestD = i, d
			}
		}

		pick, ok := p.Nearest(x, y, z)
		require.True(t, ok)
		assert.InDelta(t, bestD, pick.Distance, 1e-12)
		assert.Equal(t, best, pick.Index)
	}
}

func TestPickerNearestN(t *testing.T) {
	cloud := models.CloudFromPoints([]models.Point{
		{X: 3}, {X: 1}, {X: 2}, {X: 10},
	})
	p := NewPicker(cloud)

	picks := p.NearestN(0, 0, 0, 3)
	require.Len(t, picks, 3)
	assert.Equal(t, []int{1, 2, 0}, []int{picks[0].Index, picks[1].Index, picks[2].Index})

	// asking for more than the cloud holds returns everything
	assert.Len(t, p.NearestN(0, 0, 0, 10), 4)
	assert.Nil(t, p.NearestN(0, 0, 0, 0))
}

func TestPickerEmptyCloud(t *testing.T) {
	p := NewPicker(models.Cloud{})

	_, ok := p.Nearest(0, 0, 0)
	assert.False(t, ok)
	assert.Nil(t, p.NearestN(0, 0, 0, 2))
}
