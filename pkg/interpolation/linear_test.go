package interpolation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointcloudviz/internal/models"
)

func constCloud(n int, p models.Point) models.Cloud {
	points := make([]models.Point, n)
	for i := range points {
		points[i] = p
	}
	return models.CloudFromPoints(points)
}

func TestNewAxis(t *testing.T) {
	a := NewAxis(2.25)
	assert.Equal(t, 2.0, a.Floor)
	assert.Equal(t, 3.0, a.Ceil)
	assert.InDelta(t, 0.75, a.WFloor, 1e-12)
	assert.InDelta(t, 0.25, a.WCeil, 1e-12)
	assert.False(t, a.Aligned())

	a = NewAxis(3)
	assert.True(t, a.Aligned())
	assert.Equal(t, 1.0, a.WFloor)
	assert.Equal(t, 0.0, a.WCeil)

	a = NewAxis(-0.4)
	assert.Equal(t, -1.0, a.Floor)
	assert.Equal(t, 0.0, a.Ceil)
	assert.InDelta(t, 0.4, a.WFloor, 1e-12)
	assert.InDelta(t, 0.6, a.WCeil, 1e-12)

	// float noise stays on the grid line, a real offset does not
	a = NewAxis(2.0000000004)
	assert.True(t, a.Aligned())
	assert.Equal(t, 2.0, a.Floor)

	a = NewAxis(1.004)
	assert.False(t, a.Aligned())
	assert.InDelta(t, 0.996, a.WFloor, 1e-12)
	assert.InDelta(t, 0.004, a.WCeil, 1e-12)
}

func TestAxisWeightsSumToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		v := rng.Float64()*8 - 4
		assert.InDelta(t, 1.0, NewAxis(v).Sum(), 1e-12, "v=%g", v)
	}
}

func TestLinearIndexAligned(t *testing.T) {
	// point 5 of the floor and ceil clouds, everything else zero
	lo := models.NewCloud(8)
	hi := models.NewCloud(8)
	lo.X[5], lo.Y[5], lo.Z[5], lo.Color[5] = 1, 2, 3, 0.5
	hi.X[5], hi.Y[5], hi.Z[5], hi.Color[5] = 3, 4, 5, 0.9

	out, err := Linear(lo, hi, NewAxis(1.25))
	require.NoError(t, err)

	p := out.At(5)
	assert.InDelta(t, 1.5, p.X, 1e-12)
	assert.InDelta(t, 2.5, p.Y, 1e-12)
	assert.InDelta(t, 3.5, p.Z, 1e-12)
	assert.InDelta(t, 0.6, p.Color, 1e-12)

	assert.Equal(t, models.Point{}, out.At(4))
	// inputs are left untouched
	assert.Equal(t, 1.0, lo.X[5])
	assert.Equal(t, 3.0, hi.X[5])
}

func TestLinearAlignedReturnsFloor(t *testing.T) {
	lo := constCloud(3, models.Point{X: 1, Y: 1, Z: 1, Color: 1})
	hi := constCloud(3, models.Point{X: 9, Y: 9, Z: 9, Color: 9})

	out, err := Linear(lo, hi, NewAxis(4))
	require.NoError(t, err)
	assert.Equal(t, lo.Points(), out.Points())
}

func TestLinearLengthMismatch(t *testing.T) {
	_, err := Linear(models.NewCloud(3), models.NewCloud(0), NewAxis(0.5))
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestBilinearUnitSquare(t *testing.T) {
	c := Corners{
		C00: constCloud(2, models.Point{Color: 0}),
		C01: constCloud(2, models.Point{Color: 1}),
		C10: constCloud(2, models.Point{Color: 2}),
		C11: constCloud(2, models.Point{Color: 3}),
	}

	out, err := Bilinear(c, NewAxis(0.5), NewAxis(0.5))
	require.NoError(t, err)
	assert.InDelta(t, 1.5, out.Color[0], 1e-12)
	assert.InDelta(t, 1.5, out.Color[1], 1e-12)
}

func TestBilinearInterpolatesPosition(t *testing.T) {
	// f(z0, z1) = 10*z0 + z1 on x, 2*f on y, -f on z; bilinear is exact for it
	corner := func(z0, z1 float64) models.Cloud {
		f := 10*z0 + z1
		return constCloud(4, models.Point{X: f, Y: 2 * f, Z: -f, Color: f / 10})
	}
	c := Corners{C00: corner(0, 0), C01: corner(0, 1), C10: corner(1, 0), C11: corner(1, 1)}

	out, err := Bilinear(c, NewAxis(0.3), NewAxis(0.8))
	require.NoError(t, err)

	want := 10*0.3 + 0.8
	for i := 0; i < out.Len(); i++ {
		p := out.At(i)
		assert.InDelta(t, want, p.X, 1e-12)
		assert.InDelta(t, 2*want, p.Y, 1e-12)
		assert.InDelta(t, -want, p.Z, 1e-12)
		assert.InDelta(t, want/10, p.Color, 1e-12)
	}
}

func TestBilinearAxisOrder(t *testing.T) {
	// only the (ceil z0, floor z1) corner is non-zero
	c := Corners{
		C00: models.NewCloud(1),
		C01: models.NewCloud(1),
		C10: constCloud(1, models.Point{X: 1}),
		C11: models.NewCloud(1),
	}

	out, err := Bilinear(c, NewAxis(0.9), NewAxis(0.1))
	require.NoError(t, err)
	assert.InDelta(t, 0.9*0.9, out.X[0], 1e-12)
}

func TestBilinearLengthMismatch(t *testing.T) {
	c := Corners{
		C00: models.NewCloud(2),
		C01: models.NewCloud(2),
		C10: models.NewCloud(2),
		C11: models.Cloud{},
	}
	_, err := Bilinear(c, NewAxis(0.5), NewAxis(0.5))
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestLerp(t *testing.T) {
	assert.InDelta(t, 0.6, Lerp(0.5, 0.9, 0.75, 0.25), 1e-12)
}
