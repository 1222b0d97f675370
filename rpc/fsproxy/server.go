package fsproxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/rpc/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("fsproxy")

const (
	defaultMaxBodyBytes = 32 << 20
	shutdownTimeout     = 10 * time.Second
)

// Server exposes a backend.IBackend over HTTP.
type Server struct {
	config  common.ServerConfig
	backend backend.IBackend
	router  chi.Router
}

// NewServer builds the router for b. The backend is not closed by the server.
func NewServer(config common.ServerConfig, b backend.IBackend) *Server {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}
	s := &Server{config: config, backend: b}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	r.Use(metricsMiddleware)
	if config.LogLevel == "debug" {
		r.Use(loggerMiddleware)
	}

	r.Get("/api/health", s.handleHealth)
	r.Route("/api/fs", func(r chi.Router) {
		r.Get("/read", s.handleRead)
		r.Post("/write", s.handleWrite)
		r.Delete("/delete", s.handleDelete)
		r.Post("/mkdir", s.handleMkdir)
		r.Get("/list", s.handleList)
	})
	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	s.router = r
	return s
}

// Handler returns the http.Handler of the proxy.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on the configured endpoint until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Endpoint,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if s.config.TimeoutSecond > 0 {
		timeout := time.Duration(s.config.TimeoutSecond) * time.Second
		srv.ReadTimeout = timeout
		srv.WriteTimeout = timeout
	}

	errCh := make(chan error, 1)
	go func() {
		Logger.Infof("Starting file proxy on %s", s.config.Endpoint)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		Logger.Infof("Shutting down file proxy")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	p, ok := pathParam(w, r)
	if !ok {
		return
	}
	value, loaded, err := s.backend.Read(r.Context(), p)
	if err != nil {
		s.backendError(w, "read", p, err)
		return
	}
	if !loaded {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(value); err != nil {
		Logger.Warningf("failed to write response for %s: %v", p, err)
	}
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	p, ok := pathParam(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", maxErr.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if err := s.backend.Write(r.Context(), p, body); err != nil {
		s.backendError(w, "write", p, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := pathParam(w, r)
	if !ok {
		return
	}
	if err := s.backend.Delete(r.Context(), p); err != nil {
		s.backendError(w, "delete", p, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMkdir(w http.ResponseWriter, r *http.Request) {
	p, ok := pathParam(w, r)
	if !ok {
		return
	}
	if err := s.backend.Mkdir(r.Context(), p); err != nil {
		s.backendError(w, "mkdir", p, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	p, ok := pathParam(w, r)
	if !ok {
		return
	}
	names, err := s.backend.List(r.Context(), p)
	if err != nil {
		s.backendError(w, "list", p, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// pathParam validates the path query parameter and answers 400 if it is unusable.
func pathParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	p, err := backend.CleanPath(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return p, true
}

func (s *Server) backendError(w http.ResponseWriter, op, p string, err error) {
	Logger.Errorf("%s %s failed: %v", op, p, err)
	writeError(w, http.StatusInternalServerError, op+" failed")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Logger.Warningf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
