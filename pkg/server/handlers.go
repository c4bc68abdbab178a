package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"pointcloudviz/internal/models"
	"pointcloudviz/pkg/dataset"
	"pointcloudviz/pkg/reconstruction"
	"pointcloudviz/pkg/visualization"
)

const maxNearest = 100

type sliders struct {
	Z0 visualization.Slider `json:"z0"`
	Z1 visualization.Slider `json:"z1"`
}

type datasetResponse struct {
	Summary           dataset.Summary      `json:"summary"`
	ColorRange        [2]float64           `json:"colorRange"`
	Sliders           sliders              `json:"sliders"`
	SliderOffset      float64              `json:"sliderOffset"`
	MarkerSizes       []int                `json:"markerSizes"`
	DefaultMarkerSize int                  `json:"defaultMarkerSize"`
	DefaultSubject    models.SubjectType   `json:"defaultSubject"`
	Subjects          []models.SubjectType `json:"subjects"`
}

type cloudResponse struct {
	*models.ReconstructedCloud
	Points []models.Point `json:"points"`
}

type nearestResponse struct {
	Subject models.SubjectType   `json:"subject"`
	Z0      float64              `json:"z0"`
	Z1      float64              `json:"z1"`
	Method  string               `json:"method"`
	Picks   []visualization.Pick `json:"picks"`
}

// errBadRequest marks request validation failures
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"encoding failed"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string, extra map[string]interface{}) {
	body := map[string]interface{}{"error": msg}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// fail maps err onto a status code and writes it
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var noData *reconstruction.NoDataError
	switch {
	case errors.As(err, &noData):
		writeError(w, http.StatusNotFound, "no data", map[string]interface{}{
			"subject": noData.Subject,
			"z0":      noData.Z0,
			"z1":      noData.Z1,
			"missing": noData.Missing,
		})
	case errors.Is(err, errBadRequest), errors.Is(err, visualization.ErrInvalidMarkerSize):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		s.logger.Error("request failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func (s *Server) subject(q url.Values) (models.SubjectType, error) {
	raw := q.Get("subject")
	if raw == "" {
		return s.opts.DefaultSubject, nil
	}
	st, err := models.ParseSubjectType(raw)
	if err != nil {
		return "", badRequest("%v", err)
	}
	return st, nil
}

// floatParam reads a finite numeric query parameter, falling back to def
// when absent
func floatParam(q url.Values, name string, def float64) (float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return v, nil
}

// requiredFloat reads a numeric query parameter that must be present
func requiredFloat(q url.Values, name string) (float64, error) {
	if q.Get(name) == "" {
		return 0, badRequest("missing %s", name)
	}
	return floatParam(q, name, 0)
}

func (s *Server) markerSize(q url.Values) (int, error) {
	raw := q.Get("marker")
	if raw == "" {
		return s.opts.DefaultMarkerSize, nil
	}
	size, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("invalid marker %q", raw)
	}
	if !s.deps.Plotter.MarkerSizeAllowed(size) {
		return 0, badRequest("marker size %d is not offered", size)
	}
	return size, nil
}

// sliderQuery reads subject and slider positions. Missing sliders sit at
// their initial position, the dataset mean.
func (s *Server) sliderQuery(q url.Values) (models.SubjectType, float64, float64, error) {
	subject, err := s.subject(q)
	if err != nil {
		return "", 0, 0, err
	}
	z0, err := floatParam(q, "z0", s.sliders.Z0.Value)
	if err != nil {
		return "", 0, 0, err
	}
	z1, err := floatParam(q, "z1", s.sliders.Z1.Value)
	if err != nil {
		return "", 0, 0, err
	}
	return subject, z0, z1, nil
}

// reconstruct serves the cloud selected by the slider parameters in q
func (s *Server) reconstruct(q url.Values) (*models.ReconstructedCloud, error) {
	subject, z0, z1, err := s.sliderQuery(q)
	if err != nil {
		return nil, err
	}
	return s.deps.Reconstructor.FromSlider(subject, z0, z1)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	lo, hi := s.deps.Plotter.ColorRange()
	summary := s.deps.Reconstructor.Store().Summary()
	writeJSON(w, http.StatusOK, datasetResponse{
		Summary:           summary,
		ColorRange:        [2]float64{lo, hi},
		Sliders:           s.sliders,
		SliderOffset:      s.opts.SliderOffset,
		MarkerSizes:       s.deps.Plotter.MarkerSizes(),
		DefaultMarkerSize: s.opts.DefaultMarkerSize,
		DefaultSubject:    s.opts.DefaultSubject,
		Subjects:          summary.Subjects,
	})
}

// handleLookup returns a stored grid cloud. Coordinates are grid values,
// not slider values.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	subject, err := s.subject(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	z0, err := requiredFloat(q, "z0")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	z1, err := requiredFloat(q, "z1")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	rc, err := s.deps.Reconstructor.Lookup(subject, z0, z1)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cloudResponse{ReconstructedCloud: rc, Points: rc.Cloud.Points()})
}

func (s *Server) handleCloud(w http.ResponseWriter, r *http.Request) {
	rc, err := s.reconstruct(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cloudResponse{ReconstructedCloud: rc, Points: rc.Cloud.Points()})
}

func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	size, err := s.markerSize(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rc, err := s.reconstruct(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	desc, err := s.deps.Plotter.Render(rc, size)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

// handleSnapshot renders the reconstructed cloud as a PNG projection
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	size, err := s.markerSize(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	plane := q.Get("plane")
	if plane == "" {
		plane = "xz"
	}
	rc, err := s.reconstruct(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	img, err := s.viewer.ExtractProjection(rc.Cloud, plane, size)
	if err != nil {
		s.fail(w, r, badRequest("%v", err))
		return
	}

	var buf bytes.Buffer
	if err := s.viewer.WritePNG(&buf, img); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	z0, err := floatParam(q, "z0", s.sliders.Z0.Value)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	z1, err := floatParam(q, "z1", s.sliders.Z1.Value)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"z0": visualization.SliderLabel("z0", z0),
		"z1": visualization.SliderLabel("z1", z1),
	})
}

// handleNearest picks the points of the reconstructed cloud closest to a
// 3D position, for hover highlights.
func (s *Server) handleNearest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var pos [3]float64
	for i, name := range []string{"x", "y", "z"} {
		v, err := requiredFloat(q, name)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		pos[i] = v
	}
	n := 1
	if raw := q.Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxNearest {
			s.fail(w, r, badRequest("n must be between 1 and %d", maxNearest))
			return
		}
		n = v
	}

	rc, err := s.reconstruct(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	picks := visualization.NewPicker(rc.Cloud).NearestN(pos[0], pos[1], pos[2], n)
	if picks == nil {
		picks = []visualization.Pick{}
	}
	writeJSON(w, http.StatusOK, nearestResponse{
		Subject: rc.Subject,
		Z0:      rc.Z0,
		Z1:      rc.Z1,
		Method:  rc.Method,
		Picks:   picks,
	})
}
