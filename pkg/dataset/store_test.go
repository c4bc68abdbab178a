package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pointcloudviz/internal/models"
)

// cellRecords builds n records for one grid cell where point i has
// coordinates derived from base and i.
func cellRecords(subject models.SubjectType, z0, z1 float64, n int, base float64) []Record {
	out := make([]Record, n)
	for i := range out {
		f := float64(i)
		out[i] = Record{
			Subject: subject,
			Z0:      z0,
			Z1:      z1,
			Point:   models.Point{X: base + f, Y: base + 2*f, Z: base + 3*f, Color: base},
		}
	}
	return out
}

func TestNewStoreGroupsCells(t *testing.T) {
	var records []Record
	records = append(records, cellRecords(models.Healthy, 0, 0, 4, 1)...)
	records = append(records, cellRecords(models.Healthy, 0, 1, 4, 2)...)
	records = append(records, cellRecords(models.AD, 0, 0, 4, 3)...)

	store, err := NewStore(records, Options{CloudSize: 4, Decimals: 2})
	require.NoError(t, err)

	gp, ok := store.Lookup(models.Healthy, 0, 1)
	require.True(t, ok)
	assert.Equal(t, models.Healthy, gp.Subject)
	assert.Equal(t, 4, gp.Cloud.Len())
	assert.Equal(t, []float64{2, 3, 4, 5}, gp.Cloud.X)
	assert.Equal(t, []float64{2, 2, 2, 2}, gp.Cloud.Color)

	gp, ok = store.Lookup(models.AD, 0, 0)
	require.True(t, ok)
	assert.Equal(t, 3.0, gp.Cloud.Color[0])

	_, ok = store.Lookup(models.AD, 0, 1)
	assert.False(t, ok, "subject partitions must not leak into each other")
}

func TestLookupToleratesFloatNoise(t *testing.T) {
	store, err := NewStore(cellRecords(models.Healthy, 2.3, 1.7, 2, 0), Options{CloudSize: 2, Decimals: 2})
	require.NoError(t, err)

	_, ok := store.Lookup(models.Healthy, 2.3000000001, 1.69999999)
	assert.True(t, ok)

	_, ok = store.Lookup(models.Healthy, 2.31, 1.7)
	assert.False(t, ok)
}

func TestNewStorePreservesPointOrder(t *testing.T) {
	records := []Record{
		{Subject: models.Healthy, Point: models.Point{X: 9}},
		{Subject: models.Healthy, Z1: 1, Point: models.Point{X: 100}},
		{Subject: models.Healthy, Point: models.Point{X: 3}},
		{Subject: models.Healthy, Z1: 1, Point: models.Point{X: 200}},
		{Subject: models.Healthy, Point: models.Point{X: 7}},
		{Subject: models.Healthy, Z1: 1, Point: models.Point{X: 300}},
	}

	store, err := NewStore(records, Options{CloudSize: 3, Decimals: 2})
	require.NoError(t, err)

	gp, ok := store.Lookup(models.Healthy, 0, 0)
	require.True(t, ok)
	assert.Equal(t, []float64{9, 3, 7}, gp.Cloud.X)
}

func TestNewStoreRejectsWrongCloudSize(t *testing.T) {
	records := append(cellRecords(models.Healthy, 0, 0, 4, 0), cellRecords(models.Healthy, 0, 1, 3, 0)...)

	_, err := NewStore(records, Options{CloudSize: 4, Decimals: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has 3 points, expected 4")
}

func TestNewStoreRejectsEmpty(t *testing.T) {
	_, err := NewStore(nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestColorRangeAndSummary(t *testing.T) {
	var records []Record
	records = append(records, cellRecords(models.AD, 1, 0, 2, -0.5)...)
	records = append(records, cellRecords(models.AD, 3, 2, 2, 4.25)...)
	records = append(records, cellRecords(models.Healthy, 2, 4, 2, 1)...)

	store, err := NewStore(records, Options{CloudSize: 2, Decimals: 2})
	require.NoError(t, err)

	lo, hi := store.ColorRange()
	assert.Equal(t, -0.5, lo)
	assert.Equal(t, 4.25, hi)

	sum := store.Summary()
	assert.Equal(t, []models.SubjectType{models.Healthy, models.AD}, sum.Subjects)
	assert.Equal(t, 3, sum.Cells)
	assert.Equal(t, 6, sum.Points)
	assert.Equal(t, AxisSummary{Min: 1, Max: 3, Mean: 2}, sum.Z0)
	assert.Equal(t, 0.0, sum.Z1.Min)
	assert.Equal(t, 4.0, sum.Z1.Max)
	assert.InDelta(t, 2.0, sum.Z1.Mean, 1e-12)
}

func TestCellsSortedBySubject(t *testing.T) {
	var records []Record
	records = append(records, cellRecords(models.Healthy, 1, 1, 1, 0)...)
	records = append(records, cellRecords(models.Healthy, 0, 1, 1, 0)...)
	records = append(records, cellRecords(models.AD, 0, 0, 1, 0)...)
	records = append(records, cellRecords(models.Healthy, 0, 0, 1, 0)...)

	store, err := NewStore(records, Options{CloudSize: 1, Decimals: 2})
	require.NoError(t, err)

	cells := store.Cells(models.Healthy)
	require.Len(t, cells, 3)
	assert.Equal(t, [2]float64{0, 0}, [2]float64{cells[0].Z0, cells[0].Z1})
	assert.Equal(t, [2]float64{0, 1}, [2]float64{cells[1].Z0, cells[1].Z1})
	assert.Equal(t, [2]float64{1, 1}, [2]float64{cells[2].Z0, cells[2].Z1})
}

func TestConcurrentLookups(t *testing.T) {
	store, err := NewStore(Synthetic(DefaultSyntheticOptions()), DefaultOptions())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_, ok := store.Lookup(models.SubjectTypes[g%2], float64(i%5), float64(g%5))
				assert.True(t, ok)
			}
		}(g)
	}
	wg.Wait()
}

func TestReadRecords(t *testing.T) {
	body := strings.Join([]string{
		",Status,z0,z1,x,y,z,color_val",
		"0,HC,0.0,1.0,1.5,2.5,3.5,0.25",
		"1,AD,2,3,-1,-2,-3,0.75",
	}, "\n")

	records, err := ReadRecords(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, Record{
		Subject: models.Healthy, Z0: 0, Z1: 1,
		Point: models.Point{X: 1.5, Y: 2.5, Z: 3.5, Color: 0.25},
	}, records[0])
	assert.Equal(t, models.AD, records[1].Subject)
	assert.Equal(t, -3.0, records[1].Point.Z)
}

func TestReadRecordsErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", "", "no point clouds"},
		{"missing column", "Status,z0,z1,x,y,z\nHC,0,0,0,0,0", `missing column "color_val"`},
		{"bad number", "Status,z0,z1,x,y,z,color_val\nHC,0,0,abc,0,0,0", `line 2: column "x"`},
		{"bad status", "Status,z0,z1,x,y,z,color_val\nMCI,0,0,0,0,0,0", "unknown subject type"},
		{"ragged row", "Status,z0,z1,x,y,z,color_val\nHC,0,0,0", "line 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRecords(strings.NewReader(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWriteAndLoad(t *testing.T) {
	opts := DefaultSyntheticOptions()
	opts.Z0 = []float64{0, 1}
	opts.Z1 = []float64{0, 1, 2}
	opts.CloudSize = 16
	records := Synthetic(opts)

	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, records))

	path := filepath.Join(t.TempDir(), "clouds.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	store, err := Load(path, Options{CloudSize: 16, Decimals: 2}, zaptest.NewLogger(t))
	require.NoError(t, err)

	sum := store.Summary()
	assert.Equal(t, 12, sum.Cells)
	assert.Equal(t, len(records), sum.Points)

	gp, ok := store.Lookup(models.AD, 1, 2)
	require.True(t, ok)
	assert.Equal(t, 16, gp.Cloud.Len())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), DefaultOptions(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSyntheticIsDeterministic(t *testing.T) {
	a := Synthetic(DefaultSyntheticOptions())
	b := Synthetic(DefaultSyntheticOptions())
	require.Equal(t, len(a), len(b))
	assert.Equal(t, 2*5*5*models.DefaultCloudSize, len(a))
	assert.Equal(t, a[1234], b[1234])
}
