package reconstruction

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pointcloudviz/internal/models"
	"pointcloudviz/pkg/dataset"
	"pointcloudviz/pkg/interpolation"
	"pointcloudviz/pkg/metrics"
)

// ErrNoDataForCoordinate is matched by every NoDataError
var ErrNoDataForCoordinate = errors.New("no data for coordinate")

// GridCoord is a (z0, z1) position on the grid
type GridCoord struct {
	Z0 float64 `json:"z0"`
	Z1 float64 `json:"z1"`
}

// NoDataError reports grid cells that a reconstruction needed but the
// dataset does not contain.
type NoDataError struct {
	Subject models.SubjectType
	Z0, Z1  float64
	Missing []GridCoord
}

func (e *NoDataError) Error() string {
	parts := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		parts[i] = fmt.Sprintf("(%g, %g)", m.Z0, m.Z1)
	}
	return fmt.Sprintf("no data for %s at z0=%g z1=%g: missing grid cells %s",
		e.Subject, e.Z0, e.Z1, strings.Join(parts, ", "))
}

// Is lets errors.Is match ErrNoDataForCoordinate
func (e *NoDataError) Is(target error) bool {
	return target == ErrNoDataForCoordinate
}

// Method identifies the interpolation path used for a query
type Method int

const (
	// Exact means both coordinates are grid-aligned
	Exact Method = iota
	// AlongZ1 means z0 is aligned and z1 is interpolated
	AlongZ1
	// AlongZ0 means z1 is aligned and z0 is interpolated
	AlongZ0
	// Bilinear means neither coordinate is aligned
	Bilinear
)

func (m Method) String() string {
	switch m {
	case Exact:
		return "exact"
	case AlongZ1:
		return "z1"
	case AlongZ0:
		return "z0"
	case Bilinear:
		return "bilinear"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// SelectMethod picks the interpolation path for grid-space coordinates
func SelectMethod(z0, z1 float64) Method {
	a0, a1 := interpolation.NewAxis(z0), interpolation.NewAxis(z1)
	switch {
	case a0.Aligned() && a1.Aligned():
		return Exact
	case a0.Aligned():
		return AlongZ1
	case a1.Aligned():
		return AlongZ0
	default:
		return Bilinear
	}
}

// Params holds the reconstruction parameters.
type Params struct {
	// SliderOffset is added to slider values to obtain grid coordinates.
	// The viewer displays the grid [0, 4] as [-2, 2].
	SliderOffset float64

	// Logger receives debug entries for every reconstruction. Optional.
	Logger *zap.Logger

	// Metrics records reconstruction counts and latency. Optional.
	Metrics *metrics.Metrics
}

// Reconstructor rebuilds point clouds at arbitrary latent coordinates from
// the grid clouds of a dataset store.
//
// The store is shared and never modified, so one Reconstructor serves any
// number of concurrent requests. Every call recomputes its result; nothing
// is cached between queries.
type Reconstructor struct {
	store  *dataset.Store
	params Params
	logger *zap.Logger
}

// NewReconstructor creates a reconstructor over store
func NewReconstructor(store *dataset.Store, params *Params) *Reconstructor {
	p := Params{}
	if params != nil {
		p = *params
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconstructor{
		store:  store,
		params: p,
		logger: logger.Named("reconstruction"),
	}
}

// Store returns the dataset the reconstructor reads from
func (r *Reconstructor) Store() *dataset.Store { return r.store }

// Query converts raw slider values into grid coordinates
func (r *Reconstructor) Query(subject models.SubjectType, sliderZ0, sliderZ1 float64) models.Query {
	return models.QueryFromSlider(subject, sliderZ0, sliderZ1, r.params.SliderOffset, r.store.Decimals())
}

// FromSlider reconstructs the cloud selected by raw slider values
func (r *Reconstructor) FromSlider(subject models.SubjectType, sliderZ0, sliderZ1 float64) (*models.ReconstructedCloud, error) {
	q := r.Query(subject, sliderZ0, sliderZ1)
	return r.Reconstruct(q.Z0, q.Z1, q.Subject)
}

// Lookup returns the grid cloud stored exactly at (z0, z1) for subject
func (r *Reconstructor) Lookup(subject models.SubjectType, z0, z1 float64) (*models.ReconstructedCloud, error) {
	gp, ok := r.store.Lookup(subject, z0, z1)
	if !ok {
		return nil, &NoDataError{
			Subject: subject, Z0: z0, Z1: z1,
			Missing: []GridCoord{{Z0: z0, Z1: z1}},
		}
	}
	return &models.ReconstructedCloud{
		Subject: subject,
		Z0:      gp.Z0,
		Z1:      gp.Z1,
		Method:  Exact.String(),
		Cloud:   gp.Cloud.Clone(),
	}, nil
}

// Reconstruct builds the cloud at grid-space coordinates (z0, z1).
//
// Coordinates are used as given; only slider input is rounded, in Query.
// Grid-aligned coordinates are served straight from the store. Otherwise
// the two or four surrounding cells are blended linearly or bilinearly,
// position and color alike. A missing neighbour is reported as a
// *NoDataError instead of producing a partial cloud.
func (r *Reconstructor) Reconstruct(z0, z1 float64, subject models.SubjectType) (*models.ReconstructedCloud, error) {
	start := time.Now()
	method := SelectMethod(z0, z1)

	var (
		cloud models.Cloud
		err   error
	)
	switch method {
	case Exact:
		var rc *models.ReconstructedCloud
		rc, err = r.Lookup(subject, z0, z1)
		if rc != nil {
			cloud = rc.Cloud
		}
	case AlongZ1:
		cloud, err = r.alongZ1(subject, z0, z1)
	case AlongZ0:
		cloud, err = r.alongZ0(subject, z0, z1)
	default:
		cloud, err = r.bilinear(subject, z0, z1)
	}

	if err != nil {
		r.params.Metrics.ObserveFailure(failureReason(err))
		r.logger.Debug("reconstruction failed",
			zap.String("subject", subject.String()),
			zap.Float64("z0", z0),
			zap.Float64("z1", z1),
			zap.Stringer("method", method),
			zap.Error(err),
		)
		return nil, err
	}

	elapsed := time.Since(start)
	r.params.Metrics.ObserveReconstruction(subject.String(), method.String(), elapsed)
	r.logger.Debug("reconstructed cloud",
		zap.String("subject", subject.String()),
		zap.Float64("z0", z0),
		zap.Float64("z1", z1),
		zap.Stringer("method", method),
		zap.Int("points", cloud.Len()),
		zap.Duration("elapsed", elapsed),
	)

	return &models.ReconstructedCloud{
		Subject: subject,
		Z0:      z0,
		Z1:      z1,
		Method:  method.String(),
		Cloud:   cloud,
	}, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrNoDataForCoordinate):
		return "no_data"
	case errors.Is(err, interpolation.ErrLengthMismatch):
		return "cloud_mismatch"
	default:
		return "other"
	}
}

// corners fetches the clouds at coords, collecting every missing one
func (r *Reconstructor) corners(subject models.SubjectType, z0, z1 float64, coords ...GridCoord) ([]models.Cloud, error) {
	clouds := make([]models.Cloud, len(coords))
	var missing []GridCoord
	for i, c := range coords {
		gp, ok := r.store.Lookup(subject, c.Z0, c.Z1)
		if !ok {
			missing = append(missing, c)
			continue
		}
		clouds[i] = gp.Cloud
	}
	if len(missing) > 0 {
		return nil, &NoDataError{Subject: subject, Z0: z0, Z1: z1, Missing: missing}
	}
	return clouds, nil
}

// alongZ1 interpolates along z1 with z0 fixed on the grid
func (r *Reconstructor) alongZ1(subject models.SubjectType, z0, z1 float64) (models.Cloud, error) {
	a := interpolation.NewAxis(z1)
	clouds, err := r.corners(subject, z0, z1,
		GridCoord{Z0: z0, Z1: a.Floor},
		GridCoord{Z0: z0, Z1: a.Ceil},
	)
	if err != nil {
		return models.Cloud{}, err
	}
	return interpolation.Linear(clouds[0], clouds[1], a)
}

// alongZ0 interpolates along z0 with z1 fixed on the grid
func (r *Reconstructor) alongZ0(subject models.SubjectType, z0, z1 float64) (models.Cloud, error) {
	a := interpolation.NewAxis(z0)
	clouds, err := r.corners(subject, z0, z1,
		GridCoord{Z0: a.Floor, Z1: z1},
		GridCoord{Z0: a.Ceil, Z1: z1},
	)
	if err != nil {
		return models.Cloud{}, err
	}
	return interpolation.Linear(clouds[0], clouds[1], a)
}

func (r *Reconstructor) bilinear(subject models.SubjectType, z0, z1 float64) (models.Cloud, error) {
	a0, a1 := interpolation.NewAxis(z0), interpolation.NewAxis(z1)
	clouds, err := r.corners(subject, z0, z1,
		GridCoord{Z0: a0.Floor, Z1: a1.Floor},
		GridCoord{Z0: a0.Floor, Z1: a1.Ceil},
		GridCoord{Z0: a0.Ceil, Z1: a1.Floor},
		GridCoord{Z0: a0.Ceil, Z1: a1.Ceil},
	)
	if err != nil {
		return models.Cloud{}, err
	}
	return interpolation.Bilinear(interpolation.Corners{
		C00: clouds[0],
		C01: clouds[1],
		C10: clouds[2],
		C11: clouds[3],
	}, a0, a1)
}
