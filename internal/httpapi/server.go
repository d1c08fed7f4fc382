// SPDX-License-Identifier: Apache-2.0

// Package httpapi serves coverage tables and exports over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/conectividadeproj/conectividade-mcp/internal/coverage"
	"github.com/conectividadeproj/conectividade-mcp/internal/export"
	"github.com/conectividadeproj/conectividade-mcp/internal/registry"
	"github.com/conectividadeproj/conectividade-mcp/internal/source"
)

// Runner runs the coverage pipeline.
type Runner interface {
	RunWithMeta(ctx context.Context, opts coverage.RunOptions) (*coverage.RunResult, error)
}

// Server exposes the coverage pipeline.
type Server struct {
	runner   Runner
	datasets coverage.DatasetLoader
	logger   *zap.Logger
}

// New creates a Server.
func New(runner Runner, datasets coverage.DatasetLoader, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{runner: runner, datasets: datasets, logger: logger.Named("http")}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/coverage", s.handleCoverage)
	r.Get("/summary", s.handleSummary)
	r.Post("/refresh", s.handleRefresh)
	return r
}

// handleCoverage serves one subset in the requested format.
// GET /coverage?subset=80&format=xlsx&uf=SP
func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	th, err := coverage.ParseThreshold(q.Get("subset"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writer, err := export.ForFormat(export.Format(q.Get("format")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.runner.RunWithMeta(r.Context(), coverage.RunOptions{})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	uf := q.Get("uf")
	if !result.KnownState(uf) {
		http.Error(w, fmt.Sprintf("unknown state %q", uf), http.StatusBadRequest)
		return
	}
	rows := coverage.FilterState(result.Table.Subset(th), uf)
	coverage.SortRows(rows)

	w.Header().Set("Content-Type", writer.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.SubsetFileName(th)+"."+string(writer.Format())))
	w.Header().Set("X-Snapshot-Origin", string(result.Origin))
	if err := writer.Write(w, rows); err != nil {
		s.logger.Error("write export", zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
	}
}

type summaryResponse struct {
	RunID     string           `json:"run_id"`
	Origin    string           `json:"origin"`
	FetchedAt string           `json:"fetched_at,omitempty"`
	Summary   coverage.Summary `json:"summary"`
}

// handleSummary serves the headline indicators.
// GET /summary
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	result, err := s.runner.RunWithMeta(r.Context(), coverage.RunOptions{})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := summaryResponse{
		RunID:   result.RunID,
		Origin:  string(result.Origin),
		Summary: result.Summary,
	}
	if !result.FetchedAt.IsZero() {
		resp.FetchedAt = result.FetchedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

type refreshResponse struct {
	Origin     string `json:"origin"`
	Records    int    `json:"records"`
	FetchError string `json:"fetch_error,omitempty"`
}

// handleRefresh forces a remote fetch.
// POST /refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	result, err := s.datasets.Load(r.Context(), true)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := refreshResponse{Origin: string(result.Origin), Records: result.Dataset.Len()}
	if result.FetchErr != nil {
		resp.FetchError = result.FetchErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	s.logger.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Int("status", status),
		zap.Error(err))
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, source.ErrUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, coverage.ErrEmptyDataset):
		return http.StatusUnprocessableEntity
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, registry.ErrSchema):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
