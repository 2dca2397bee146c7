// Package api exposes the extraction pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ppiankov/contextcruncher/internal/model"
)

const healthCheckTimeout = 10 * time.Second

// Runner performs one extraction
type Runner interface {
	Run(ctx context.Context, audio model.AudioInput, policy model.IdentificationPolicy) (*model.ContextArtifact, error)
}

// Checker reports whether the inference service is reachable
type Checker interface {
	IsAvailable(ctx context.Context) bool
}

type Server struct {
	router    *chi.Mux
	runner    Runner
	checker   Checker
	addr      string
	maxUpload int64
	logger    *slog.Logger
}

func NewServer(runner Runner, cfg model.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = model.DefaultConfig().Server.MaxUploadBytes
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		runner:    runner,
		addr:      cfg.Addr,
		maxUpload: maxUpload,
		logger:    logger,
	}

	router.Get("/health", s.health)
	router.Post("/api/v1/extract", s.extract)

	return s
}

// WithChecker enables GET /health?deep=1, which asks the inference service
// whether it is reachable with the configured credentials
func (s *Server) WithChecker(c Checker) *Server {
	s.checker = c
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is canceled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ExtractResponse is the success body of POST /api/v1/extract
type ExtractResponse struct {
	Markdown         string              `json:"markdown"`
	MarkdownFilename string              `json:"markdown_filename"`
	JSONFilename     string              `json:"json_filename"`
	Record           model.ContextRecord `json:"record"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("deep") == "" || s.checker == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()
	if !s.checker.IsAvailable(ctx) {
		s.logger.Warn("deep health check failed", "request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "inference": "reachable"})
}

func (s *Server) extract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	audio, err := s.readAudio(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	mode, err := model.ParseIdentificationMode(r.FormValue("mode"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	policy := model.IdentificationPolicy{Mode: mode, Name: r.FormValue("name")}

	artifact, err := s.runner.Run(r.Context(), audio, policy)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ExtractResponse{
		Markdown:         artifact.Markdown,
		MarkdownFilename: artifact.MarkdownFilename,
		JSONFilename:     artifact.JSONFilename,
		Record:           artifact.Record,
	})
}

// readAudio takes the "audio" form file. The part's declared content type
// wins; generic types fall back to the filename extension.
func (s *Server) readAudio(r *http.Request) (model.AudioInput, error) {
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return model.AudioInput{}, model.NewConfigurationError("audio", fmt.Sprintf("upload exceeds %d bytes", maxErr.Limit))
		}
		return model.AudioInput{}, model.NewConfigurationError("audio", "expected a multipart form upload")
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		return model.AudioInput{}, model.NewConfigurationError("audio", "missing audio file field")
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return model.AudioInput{}, fmt.Errorf("read upload: %w", err)
	}

	mimeType, ok := model.NormalizeMIMEType(header.Header.Get("Content-Type"))
	if !ok {
		mimeType, err = model.MIMETypeForPath(header.Filename)
		if err != nil {
			return model.AudioInput{}, err
		}
	}

	audio := model.AudioInput{Data: data, MIMEType: mimeType, Name: header.Filename}
	return audio, audio.Validate()
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	kind := model.ErrorKind(err)
	retryable := model.IsRetryable(err)

	s.logger.Warn("extract request failed",
		"request_id", middleware.GetReqID(r.Context()),
		"status", status,
		"kind", kind,
		"retryable", retryable,
		"error", err,
	)

	msg := err.Error()
	if kind == "internal" {
		msg = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Error: msg, Kind: kind, Retryable: retryable})
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	var te *model.TransportError
	switch {
	case errors.Is(err, model.ErrConfiguration):
		return http.StatusBadRequest
	case errors.As(err, &te):
		switch te.Kind {
		case model.TransportRateLimited:
			return http.StatusTooManyRequests
		case model.TransportTimeout, model.TransportCanceled:
			return http.StatusGatewayTimeout
		default:
			return http.StatusBadGateway
		}
	case errors.Is(err, model.ErrSchemaViolation):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
