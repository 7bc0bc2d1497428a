// Package server exposes a coverage tree over HTTP: the tree itself, node
// navigation, the summary, point and pivot grids, and a rendered HTML
// report.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jupierce/coverage-viewer/pkg/config"
	"github.com/jupierce/coverage-viewer/pkg/covtree"
	"github.com/jupierce/coverage-viewer/pkg/grid"
	"github.com/jupierce/coverage-viewer/pkg/log"
)

// Options configure a Server
type Options struct {
	Title   string
	Palette grid.Palette
}

// Server is the HTTP API server for a coverage tree.
type Server struct {
	router  chi.Router
	tree    *covtree.CoverageTree
	log     *log.Logger
	metrics *Metrics
	reg     *prometheus.Registry
	opts    Options
}

// NewServer creates and configures the HTTP server. Metrics are registered
// with reg and served from /metrics.
func NewServer(ct *covtree.CoverageTree, logger *log.Logger, reg *prometheus.Registry, opts Options) *Server {
	s := &Server{
		tree:    ct,
		log:     logger,
		metrics: NewMetrics(reg),
		reg:     reg,
		opts:    opts,
	}
	s.metrics.TreeNodes.Set(float64(ct.Len()))
	s.metrics.Readings.Set(float64(len(ct.Readings())))
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log, s.metrics))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	r.Get("/", s.handleReport)

	r.Route("/api", func(r chi.Router) {
		r.Get("/tree", s.handleTree)
		r.Get("/search", s.handleSearch)

		r.Route("/nodes/{key}", func(r chi.Router) {
			r.Get("/", s.handleNode)
			r.Get("/ancestors", s.handleAncestors)
			r.Get("/breadcrumbs", s.handleBreadcrumbs)
			r.Get("/summary", s.handleSummary)
			r.Get("/points", s.handlePoints)
			r.Get("/pivot", s.handlePivot)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, "not found: "+r.URL.Path, http.StatusNotFound)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.ServerConfig) error {
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Serving %d points on %s", s.tree.Len(), cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}
