// Package sandbox is an in-memory PMS that serves the night audit API.
// It is meant for demos and integration tests; all state is lost on exit.
package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ppiankov/nightaudit/internal/model"
)

// Config holds sandbox settings.
type Config struct {
	Addr       string
	Token      string // when set, requests must carry "Bearer <Token>"
	TotalRooms int
	Seed       SeedFunc
	Latency    time.Duration // added to every step call
	Logger     *slog.Logger
}

// Server is the sandbox PMS.
type Server struct {
	cfg    Config
	logger *slog.Logger
	router chi.Router

	mu     sync.Mutex
	audits map[model.ProcessKey]*audit
	byID   map[string]model.ProcessKey

	srv *http.Server
}

// New builds a sandbox. Zero Config fields get defaults.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.TotalRooms <= 0 {
		cfg.TotalRooms = 40
	}
	if cfg.Seed == nil {
		cfg.Seed = DefaultSeed
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger,
		audits: make(map[model.ProcessKey]*audit),
		byID:   make(map[string]model.ProcessKey),
	}
	s.router = s.routes()
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, for use with httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.srv.Addr }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.authenticate)

	r.Route("/api/night-audit", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/audit-report", s.handleReport)
		r.Group(func(r chi.Router) {
			r.Use(s.delay)
			r.Post("/start", s.handleStart)
			r.Post("/automatic-posting", s.handleAutoPosting)
			r.Post("/no-show-handling", s.handleNoShows)
			r.Post("/end-of-day", s.handleEndOfDay)
		})
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "no such endpoint")
	})
	return r
}

// Start listens on Addr and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}
	s.logger.Info("sandbox pms listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	err = s.srv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("sandbox request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"tenant", r.Header.Get("X-Tenant-ID"),
			"request_id", r.Header.Get("X-Request-ID"),
		)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.cfg.Token {
			writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) delay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Latency > 0 {
			select {
			case <-time.After(s.cfg.Latency):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
