package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/site-analysis-cli/internal/export"
	"github.com/sells-group/site-analysis-cli/internal/geo"
	"github.com/sells-group/site-analysis-cli/internal/ingest"
	"github.com/sells-group/site-analysis-cli/internal/pipeline"
	"github.com/sells-group/site-analysis-cli/internal/results"
)

// multipartMemory caps how much of an upload is held in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

type analyzeResponse struct {
	Summary     export.Summary   `json:"summary"`
	Preview     []map[string]any `json:"preview"`
	TotalRows   int              `json:"total_rows"`
	Messages    []string         `json:"messages"`
	DownloadURL string           `json:"download_url,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadMB<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d MB limit", s.cfg.Server.MaxUploadMB))
			return
		}
		writeError(w, http.StatusBadRequest, "malformed multipart form")
		return
	}

	params, err := s.analysisParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, `multipart field "file" is required`)
		return
	}
	defer file.Close()

	ds, err := ingest.ReadCSVFrom(file, ingest.CSVOptions{})
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable csv upload")
		return
	}

	cleaned := ingest.Clean(ds)
	res, err := pipeline.Run(r.Context(), cleaned.Sites, params)
	if err != nil {
		s.metrics.AnalysesTotal.WithLabelValues("upload", "error").Inc()
		zap.L().Error("server: analysis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	resp := analyzeResponse{
		Summary:   export.Summarize(res.Sites),
		Preview:   export.Preview(res.Sites, cleaned.Extras, s.cfg.Server.PreviewRows),
		TotalRows: len(res.Sites),
		Messages:  append(cleaned.Messages, res.Messages...),
	}

	outcome := "empty"
	if len(res.Sites) > 0 {
		outcome = "success"
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, res.Sites, cleaned.Extras); err != nil {
			s.metrics.AnalysesTotal.WithLabelValues("upload", "error").Inc()
			zap.L().Error("server: render result csv", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to render results")
			return
		}
		id := s.store.Put(results.Entry{Data: buf.Bytes()})
		resp.DownloadURL = "/v1/results/" + id + "/download"
	}

	s.metrics.AnalysesTotal.WithLabelValues("upload", outcome).Inc()
	s.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	s.metrics.SitesProcessed.Add(float64(len(res.Sites)))
	s.metrics.RowsDropped.Add(float64(cleaned.Dropped))
	s.metrics.ResultsCached.Set(float64(s.store.Len()))

	writeJSON(w, http.StatusOK, resp)
}

// analysisParams merges request overrides onto the configured analysis
// defaults and validates the result before any rows are touched.
func (s *Server) analysisParams(r *http.Request) (pipeline.Params, error) {
	a := s.cfg.Analysis

	floats := []struct {
		name string
		dst  *float64
	}{
		{"radius_km", &a.RadiusKM},
		{"co_location_threshold_m", &a.CoLocationThresholdM},
		{"rural", &a.Thresholds.Rural},
		{"suburban", &a.Thresholds.Suburban},
		{"urban", &a.Thresholds.Urban},
	}
	for _, f := range floats {
		v := r.FormValue(f.name)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return pipeline.Params{}, eris.Errorf("server: invalid %s %q", f.name, v)
		}
		*f.dst = parsed
	}
	if v := r.FormValue("classification_mode"); v != "" {
		a.ClassificationMode = v
	}

	merged := *s.cfg
	merged.Analysis = a
	if err := merged.Validate("analyze"); err != nil {
		return pipeline.Params{}, err
	}

	return pipeline.Params{
		RadiusKM:   a.RadiusKM,
		ThresholdM: a.CoLocationThresholdM,
		Mode:       geo.ClassificationMode(a.ClassificationMode),
		Thresholds: a.Thresholds.Geo(),
		Workers:    a.Workers,
	}, nil
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, ok := s.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "result not found or expired")
		return
	}

	name := entry.Filename
	if name == "" {
		name = fmt.Sprintf("site_analysis_%s.csv", shortID(id))
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(entry.Data); err != nil {
		zap.L().Warn("server: write download", zap.Error(err))
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
