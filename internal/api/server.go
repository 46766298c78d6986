// Package api serves stored scans and on-demand parsing over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ppiankov/hardenscope/internal/aggregator"
	"github.com/ppiankov/hardenscope/internal/formatter"
	"github.com/ppiankov/hardenscope/internal/models"
	"github.com/ppiankov/hardenscope/internal/parser"
	"github.com/ppiankov/hardenscope/internal/reporter"
	"github.com/ppiankov/hardenscope/internal/storage"
)

// Options configures a Server. Zero values use defaults.
type Options struct {
	Version        string
	TopFindings    int
	PrintFindings  int
	PrintDetails   int
	MaxUploadBytes int64
	RateLimit      float64
	RateBurst      int
}

// Server exposes the read-only scan API.
type Server struct {
	store   storage.Storage
	parser  *parser.Parser
	logger  *slog.Logger
	opts    Options
	handler http.Handler
	now     func() time.Time
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type scanListResponse struct {
	Scans []*models.ScanMetadata `json:"scans"`
	Count int                    `json:"count"`
}

// NewServer wires routes and middleware. A nil logger discards logs.
func NewServer(store storage.Storage, p *parser.Parser, logger *slog.Logger, opts Options) *Server {
	if p == nil {
		p = parser.New(nil, parser.Options{})
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultRequestBodyLimitBytes
	}

	s := &Server{
		store:  store,
		parser: p,
		logger: logger,
		opts:   opts,
		now:    time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/scans", s.handleListScans)
	mux.HandleFunc("GET /api/scans/{id}", s.handleGetScan)
	mux.HandleFunc("GET /api/scans/{id}/results", s.handleResults)
	mux.HandleFunc("GET /api/scans/{id}/raw", s.handleRaw)
	mux.HandleFunc("GET /api/scans/{id}/report.html", s.handleReportHTML)
	mux.HandleFunc("POST /api/parse", s.handleParse)

	var h http.Handler = mux
	h = BodySizeLimit(opts.MaxUploadBytes)(h)
	h = RateLimitPerIP(opts.RateLimit, opts.RateBurst)(h)
	h = SecurityHeaders(h)
	h = RequestLogger(logger)(h)
	s.handler = h

	return s
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: s.opts.Version})
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if err := ValidateStatus(status); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	limit, err := ParseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	scans, err := s.store.ListScans(status)
	if err != nil {
		s.internalError(w, "list scans", err)
		return
	}
	if len(scans) > limit {
		scans = scans[:limit]
	}
	if scans == nil {
		scans = []*models.ScanMetadata{}
	}
	s.writeJSON(w, http.StatusOK, scanListResponse{Scans: scans, Count: len(scans)})
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	id, ok := s.scanID(w, r)
	if !ok {
		return
	}
	meta, err := s.store.LoadScan(id)
	if err != nil {
		s.storageError(w, "load scan", err)
		return
	}
	s.writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	id, ok := s.scanID(w, r)
	if !ok {
		return
	}
	report, err := s.store.LoadReport(id)
	if err != nil {
		s.storageError(w, "load report", err)
		return
	}
	s.writeJSON(w, http.StatusOK, formatter.FormatForDisplay(report, formatter.Options{TopN: s.opts.TopFindings}))
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	id, ok := s.scanID(w, r)
	if !ok {
		return
	}
	raw, err := s.store.LoadRawOutput(id)
	if err != nil {
		s.storageError(w, "load raw output", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (s *Server) handleReportHTML(w http.ResponseWriter, r *http.Request) {
	id, ok := s.scanID(w, r)
	if !ok {
		return
	}
	meta, err := s.store.LoadScan(id)
	if err != nil {
		s.storageError(w, "load scan", err)
		return
	}
	report, err := s.store.LoadReport(id)
	if err != nil {
		s.storageError(w, "load report", err)
		return
	}

	doc := &reporter.Report{
		ScanID:      meta.ID,
		Source:      meta.Source,
		GeneratedAt: s.now(),
		Display: formatter.FormatForPrint(report, formatter.PrintOptions{
			MaxFindings: s.opts.PrintFindings,
			MaxDetails:  s.opts.PrintDetails,
		}),
		Recommendations: aggregator.NewRecommendationGenerator().GenerateRecommendations(report),
	}

	var buf bytes.Buffer
	html, err := reporter.NewHTMLReporter(&buf)
	if err == nil {
		err = html.Generate(doc)
	}
	if err != nil {
		s.internalError(w, "render report", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", reportCSP)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", maxErr.Limit))
			return
		}
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read body: %w", err))
		return
	}
	if err := ValidateRawOutput(body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	report, err := s.parser.ParseBytes(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.logger.Debug("parsed upload", "bytes", len(body), "findings", report.TotalFindings())
	s.writeJSON(w, http.StatusOK, formatter.FormatForDisplay(report, formatter.Options{TopN: s.opts.TopFindings}))
}

func (s *Server) scanID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if err := ValidateScanID(id); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return "", false
	}
	return id, true
}

func (s *Server) storageError(w http.ResponseWriter, op string, err error) {
	if storage.IsNotFound(err) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.internalError(w, op, err)
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("request failed", "op", op, "error", err)
	s.writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
