package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/teatak/freqseg/cache"
	"github.com/teatak/freqseg/dictionary"
	"github.com/teatak/freqseg/metrics"
	"github.com/teatak/freqseg/segmenter"
)

// SegRequest is the body of POST /v1/segment.
type SegRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode"` // cut, search
}

type SegResponse struct {
	Tokens []string `json:"tokens"`
	Cached bool     `json:"cached,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type server struct {
	seg     *segmenter.Segmenter
	cache   *cache.TokenCache
	metrics *metrics.Metrics
	logger  *zap.Logger
	maxBody int64
}

func (s *server) routes(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /v1/segment", s.instrument("/v1/segment", s.handleSegment))
	mux.Handle("GET /healthz", s.instrument("/healthz", s.handleHealth))
	mux.Handle("GET /readyz", s.instrument("/readyz", s.handleReady))
	mux.Handle("GET /metrics", metrics.Handler(g))
	return mux
}

func (s *server) handleSegment(w http.ResponseWriter, r *http.Request) {
	var req SegRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	mode, err := segmenter.ParseMode(req.Mode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var (
		tokens []string
		cached bool
	)
	if s.cache != nil {
		tokens, cached, err = s.cache.GetOrCompute(r.Context(), mode.String(), req.Text, func(ctx context.Context) ([]string, error) {
			return s.seg.Segment(ctx, req.Text, mode)
		})
	} else {
		tokens, err = s.seg.Segment(r.Context(), req.Text, mode)
	}
	if err != nil {
		s.logger.Error("segmentation failed", zap.Error(err))
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, SegResponse{Tokens: tokens, Cached: cached})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.seg.Initialize(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	ft := s.seg.Table()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"words":  ft.Words(),
		"total":  ft.Total(),
	})
}

func (s *server) instrument(path string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h(sw, r)
		if s.metrics != nil {
			s.metrics.HTTPRequest(path, sw.status)
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dictionary.ErrInvalidEntry), errors.Is(err, dictionary.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
