// Package metrics exposes Prometheus collectors for reconstructions and
// HTTP traffic. All methods are safe on a nil *Metrics so callers that do
// not care about instrumentation can pass nil.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pointcloudviz"

// Metrics holds every collector of the process
type Metrics struct {
	ReconstructionsTotal   *prometheus.CounterVec
	ReconstructionFailures *prometheus.CounterVec
	ReconstructionDuration *prometheus.HistogramVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	DatasetCells  prometheus.Gauge
	DatasetPoints prometheus.Gauge
}

// New registers all collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ReconstructionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconstructions_total",
			Help:      "Point clouds reconstructed, by subject type and interpolation method.",
		}, []string{"subject", "method"}),
		ReconstructionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconstruction_failures_total",
			Help:      "Reconstructions that failed, by reason.",
		}, []string{"reason"}),
		ReconstructionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconstruction_duration_seconds",
			Help:      "Time spent reconstructing a point cloud.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 14), // 10µs to ~80ms
		}, []string{"method"}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status code.",
		}, []string{"route", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"route"}),
		DatasetCells: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_cells",
			Help:      "Grid cells held by the dataset store.",
		}),
		DatasetPoints: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_points",
			Help:      "Points held by the dataset store.",
		}),
	}
}

// ObserveReconstruction records one successful reconstruction
func (m *Metrics) ObserveReconstruction(subject, method string, d time.Duration) {
	if m == nil {
		return
	}
	m.ReconstructionsTotal.WithLabelValues(subject, method).Inc()
	m.ReconstructionDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveFailure records a failed reconstruction
func (m *Metrics) ObserveFailure(reason string) {
	if m == nil {
		return
	}
	m.ReconstructionFailures.WithLabelValues(reason).Inc()
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(route, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// SetDataset publishes the size of the loaded dataset
func (m *Metrics) SetDataset(cells, points int) {
	if m == nil {
		return
	}
	m.DatasetCells.Set(float64(cells))
	m.DatasetPoints.Set(float64(points))
}
