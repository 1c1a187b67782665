// Package server exposes the Strava session and the aggregated report over a
// small local HTTP API, including a relay that forwards reads to Strava with
// the stored credential.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"strava-wrapped/internal/auth"
	"strava-wrapped/internal/format"
	"strava-wrapped/internal/logging"
	"strava-wrapped/internal/service"
)

const shutdownTimeout = 5 * time.Second

// Reports is the subset of *service.ReportService the server uses
type Reports interface {
	Load(ctx context.Context, opts service.LoadOptions) (*service.Report, error)
	Invalidate()
}

// Upstream sends authenticated requests to Strava; *strava.Client implements it
type Upstream interface {
	Do(ctx context.Context, method, path string, params url.Values) (*http.Response, error)
	RateLimitStatus() (shortRemaining, dailyRemaining int)
}

// Options configures the server
type Options struct {
	Addr      string
	KeepAlive string // cron spec, "" disables the keep-alive job
	Units     format.Units
}

// Server wires the session gate, the report service and the relay to HTTP
type Server struct {
	gate     *auth.Gate
	oauth    *auth.OAuthClient
	reports  Reports
	upstream Upstream
	opts     Options
}

// New creates a server
func New(gate *auth.Gate, oauth *auth.OAuthClient, reports Reports, upstream Upstream, opts Options) *Server {
	return &Server{
		gate:     gate,
		oauth:    oauth,
		reports:  reports,
		upstream: upstream,
		opts:     opts,
	}
}

// Handler returns the router with all routes mounted
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", s.handleLogin)
		r.Get("/callback", s.handleCallback)
		r.Post("/logout", s.handleLogout)
		r.Get("/status", s.handleStatus)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/roast", s.handleRoast)
		r.Get("/strava/*", s.handleRelay)
	})

	return r
}

// Run serves until ctx is cancelled, running the keep-alive job alongside
func (s *Server) Run(ctx context.Context) error {
	job, err := NewKeepAlive(s.gate, s.opts.KeepAlive)
	if err != nil {
		return err
	}
	if job != nil {
		job.Start()
		defer func() { <-job.Stop().Done() }()
	}

	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Server", "listening on http://%s", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logging.Info("Server", "shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// requestLogger logs each request through the logging package
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Debug("HTTP", "%s %s %d %dB %s", r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start).Round(time.Millisecond))
	})
}
