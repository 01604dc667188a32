package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"yatube/internal/cache"
	"yatube/internal/database"
	"yatube/internal/middleware"
	"yatube/internal/render"
	"yatube/internal/storage"
	"yatube/internal/utils"

	"github.com/gorilla/mux"
)

// Server holds all server dependencies
type Server struct {
	DB            database.DBAdapter
	Renderer      render.Renderer
	Sessions      *middleware.SessionManager
	Media         *storage.MediaStore
	Cache         *cache.PageCache
	Metrics       *utils.MetricsCollector
	Logger        *slog.Logger
	PostsPerPage  int
	IndexCacheTTL time.Duration

	router *mux.Router
}

// Options are the collaborators of a Server. Renderer may be nil, in which
// case the embedded HTML templates are used.
type Options struct {
	DB            database.DBAdapter
	Renderer      render.Renderer
	Sessions      *middleware.SessionManager
	Media         *storage.MediaStore
	Cache         *cache.PageCache
	Metrics       *utils.MetricsCollector
	Logger        *slog.Logger
	PostsPerPage  int
	IndexCacheTTL time.Duration
}

// NewServer wires the router and, when none is given, the HTML renderer.
func NewServer(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = utils.DiscardLogger()
	}
	if opts.Cache == nil {
		opts.Cache = cache.New()
	}
	if opts.Metrics == nil {
		opts.Metrics = utils.NewMetricsCollector()
	}
	if opts.PostsPerPage < 1 {
		opts.PostsPerPage = 10
	}

	s := &Server{
		DB:            opts.DB,
		Renderer:      opts.Renderer,
		Sessions:      opts.Sessions,
		Media:         opts.Media,
		Cache:         opts.Cache,
		Metrics:       opts.Metrics,
		Logger:        opts.Logger,
		PostsPerPage:  opts.PostsPerPage,
		IndexCacheTTL: opts.IndexCacheTTL,
	}
	s.routes()

	if s.Renderer == nil {
		renderer, err := render.NewHTMLRenderer(render.Options{URL: s.URL, Logger: s.Logger})
		if err != nil {
			return nil, err
		}
		s.Renderer = renderer
	}
	return s, nil
}

// ServeHTTP makes Server the root handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// healthChecker is implemented by storage backends that can report on
// their connection.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HandleHealth handles health check requests
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		dbStatus := "ok"

		if checker, ok := s.DB.(healthChecker); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.HealthCheck(ctx); err != nil {
				s.Logger.Error("health check failed", slog.Any("error", err))
				status, code, dbStatus = "unhealthy", http.StatusServiceUnavailable, "unreachable"
			}
		}

		writeJSON(w, code, map[string]interface{}{
			"status":      status,
			"database":    dbStatus,
			"uptime":      s.Metrics.Uptime().Round(time.Second).String(),
			"cache_items": s.Cache.Len(),
			"server_time": time.Now(),
		})
	}
}
