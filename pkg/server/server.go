// Package server exposes the point-cloud explorer over HTTP.
//
// Every request is answered synchronously from the shared, read-only
// dataset store. Handlers never mutate shared state; the only shared
// writable objects are the Prometheus collectors.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pointcloudviz/internal/models"
	"pointcloudviz/pkg/metrics"
	"pointcloudviz/pkg/reconstruction"
	"pointcloudviz/pkg/visualization"
)

// Options configures the HTTP server
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// SliderOffset converts between grid and slider coordinates
	SliderOffset float64

	// DefaultMarkerSize is used when a plot request has no marker parameter
	DefaultMarkerSize int

	// DefaultSubject is used when a request has no subject parameter
	DefaultSubject models.SubjectType

	// SnapshotSize is the edge length of PNG snapshots
	SnapshotSize int
}

// DefaultOptions mirrors the defaults of the configuration file
func DefaultOptions() Options {
	return Options{
		Addr:              ":8060",
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		SliderOffset:      2,
		DefaultMarkerSize: 15,
		DefaultSubject:    models.Healthy,
		SnapshotSize:      512,
	}
}

// Deps are the collaborators the handlers read from
type Deps struct {
	Reconstructor *reconstruction.Reconstructor
	Plotter       *visualization.Plotter

	// Logger defaults to a no-op logger
	Logger *zap.Logger

	// Metrics and Gatherer are optional. Without a Gatherer /metrics is not
	// mounted.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// Server is the HTTP front end of the explorer
type Server struct {
	srv     *http.Server
	router  *mux.Router
	handler http.Handler
	opts    Options
	deps    Deps
	logger  *zap.Logger
	viewer  *visualization.Viewer
	sliders sliders
}

// NewServer wires the routes and middleware. It does not start listening.
func NewServer(deps Deps, opts Options) (*Server, error) {
	if deps.Reconstructor == nil {
		return nil, errors.New("server requires a reconstructor")
	}
	if deps.Plotter == nil {
		return nil, errors.New("server requires a plotter")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.DefaultSubject == "" {
		opts.DefaultSubject = models.Healthy
	}
	if !deps.Plotter.MarkerSizeAllowed(opts.DefaultMarkerSize) {
		return nil, fmt.Errorf("default marker size %d is not allowed", opts.DefaultMarkerSize)
	}

	lo, hi := deps.Plotter.ColorRange()
	summary := deps.Reconstructor.Store().Summary()

	s := &Server{
		opts:   opts,
		deps:   deps,
		logger: deps.Logger.Named("http"),
		viewer: visualization.NewViewer(opts.SnapshotSize, lo, hi),
		sliders: sliders{
			Z0: visualization.SliderFor(summary.Z0, opts.SliderOffset),
			Z1: visualization.SliderFor(summary.Z1, opts.SliderOffset),
		},
	}
	s.router = s.routes()
	s.handler = s.requestID(s.accessLog(s.router))
	s.srv = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.handler,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	}
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.routeName)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/dataset", s.handleDataset).Methods(http.MethodGet)
	api.HandleFunc("/lookup", s.handleLookup).Methods(http.MethodGet)
	api.HandleFunc("/cloud", s.handleCloud).Methods(http.MethodGet)
	api.HandleFunc("/plot", s.handlePlot).Methods(http.MethodGet)
	api.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/labels", s.handleLabels).Methods(http.MethodGet)
	api.HandleFunc("/nearest", s.handleNearest).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})
	return r
}

// Start listens on the configured address and blocks until the server
// stops. A graceful Stop makes Start return nil.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.opts.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down, waiting for in-flight requests up to the
// configured shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Handler returns the routed handler wrapped in the request ID and access
// log middleware, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.handler
}
