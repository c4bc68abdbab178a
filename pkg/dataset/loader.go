package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"pointcloudviz/internal/models"
)

// Column names of the columnar point-cloud table
const (
	ColumnStatus = "Status"
	ColumnZ0     = "z0"
	ColumnZ1     = "z1"
	ColumnX      = "x"
	ColumnY      = "y"
	ColumnZ      = "z"
	ColumnColor  = "color_val"
)

var requiredColumns = []string{ColumnStatus, ColumnZ0, ColumnZ1, ColumnX, ColumnY, ColumnZ, ColumnColor}

// Load reads the dataset table at path and builds a Store. Any error is
// fatal for the caller: the viewer has nothing to serve without its data.
func Load(path string, opts Options, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}

	store, err := NewStore(records, opts)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset %s: %w", path, err)
	}

	sum := store.Summary()
	logger.Info("dataset loaded",
		zap.String("path", path),
		zap.Int("cells", sum.Cells),
		zap.Int("points", sum.Points),
		zap.Float64("color_min", sum.ColorMin),
		zap.Float64("color_max", sum.ColorMax),
		zap.Duration("elapsed", time.Since(start)),
	)
	return store, nil
}

// ReadRecords parses a CSV table with a header row. Columns may appear in
// any order; columns other than the required ones (for example an index
// column written by pandas) are ignored.
func ReadRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDataset
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	cols := make([]int, len(requiredColumns))
	for i, name := range requiredColumns {
		c, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		cols[i] = c
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec, err := parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func parseRow(row []string, cols []int) (Record, error) {
	subject, err := models.ParseSubjectType(row[cols[0]])
	if err != nil {
		return Record{}, err
	}

	var vals [6]float64
	for i := range vals {
		field := strings.TrimSpace(row[cols[i+1]])
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return Record{}, fmt.Errorf("column %q: %w", requiredColumns[i+1], err)
		}
		vals[i] = v
	}

	return Record{
		Subject: subject,
		Z0:      vals[0],
		Z1:      vals[1],
		Point:   models.Point{X: vals[2], Y: vals[3], Z: vals[4], Color: vals[5]},
	}, nil
}

// WriteRecords writes records as a CSV table readable by ReadRecords
func WriteRecords(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(requiredColumns); err != nil {
		return err
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, rec := range records {
		row := []string{
			rec.Subject.String(),
			format(rec.Z0),
			format(rec.Z1),
			format(rec.Point.X),
			format(rec.Point.Y),
			format(rec.Point.Z),
			format(rec.Point.Color),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
