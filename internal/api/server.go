// Package api serves tag predictions over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crimson-sun/stacktag/internal/config"
)

// Predictor ranks up to k labels for each text. *engine.Engine implements it.
type Predictor interface {
	Predict(ctx context.Context, texts []string, k int) ([][]string, error)
}

// Server is the prediction HTTP server.
type Server struct {
	predictor       Predictor
	topK            int
	http            *http.Server
	shutdownTimeout time.Duration
}

// New builds a Server for pred using the listen address, default top_k and
// timeouts from cfg.
func New(pred Predictor, cfg config.ServerConfig) *Server {
	s := &Server{
		predictor:       pred,
		topK:            cfg.TopK,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	if s.topK <= 0 {
		s.topK = config.Default().Server.TopK
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = config.Default().Server.ShutdownTimeout
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Router(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s
}

// Router returns the route tree with its middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(prometheusMetrics)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", s.handleHello)
	r.Get("/health", s.handleHealth)
	r.Get("/test", s.handleTestPage)
	r.Post("/predict", s.handlePredict)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api: listen: %w", err)
	case <-ctx.Done():
	}

	slog.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api: listen: %w", err)
	}
	return nil
}
