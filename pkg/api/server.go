// Package api serves layouts and progressive-loading sessions over HTTP.
//
// Layout endpoints are stateless and go through a [pipeline.Runner].
// Session endpoints drive a server-side [loader.Loader] per gallery view:
// the client pushes observe/visible/loaded/failed events and every
// response carries the ids the client should be fetching.
//
//	GET    /healthz
//	GET    /v1/responsive?width=
//	POST   /v1/layout
//	GET    /v1/galleries/{id}/layout?width=&screen=&refresh=
//	POST   /v1/sessions
//	POST   /v1/sessions/{sid}/{observe,unobserve,visible,loaded,failed,preload,clear}
//	GET    /v1/sessions/{sid}/{metrics,state}
//	DELETE /v1/sessions/{sid}
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/tiledgallery/pkg/capability"
	"github.com/matzehuels/tiledgallery/pkg/loader"
	"github.com/matzehuels/tiledgallery/pkg/observability"
	"github.com/matzehuels/tiledgallery/pkg/pipeline"
	"github.com/matzehuels/tiledgallery/pkg/session"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

// Config wires a Server.
type Config struct {
	Runner   *pipeline.Runner
	Sessions *session.MemoryStore

	// LoaderOptions are the defaults for new sessions; clients may
	// override them per session.
	LoaderOptions loader.Options

	// Limits bound client overrides; LoaderOptions themselves are
	// trusted. The zero value means loader.DefaultLimits.
	Limits     loader.Limits
	SessionTTL time.Duration

	// Memory is sampled by every session's governor. A process-wide
	// sampler such as capability.RuntimeSampler reports the same usage to
	// all of them, so under pressure each session reclaims its own
	// non-visible tiles against the whole process's usage, not a
	// per-session share.
	Memory capability.MemorySampler
	Hooks         observability.LoaderHooks
	Logger        *log.Logger
	Version       string
}

// Server is the HTTP API.
type Server struct {
	cfg    Config
	router chi.Router
	logger *log.Logger

	// runners tracks session governor goroutines.
	runners sync.WaitGroup
}

// New creates a server. A nil Runner or Sessions gets a default.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Runner == nil {
		cfg.Runner = pipeline.NewRunner(nil, nil, nil, cfg.Logger)
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewMemoryStore(0)
	}
	if cfg.LoaderOptions == (loader.Options{}) {
		cfg.LoaderOptions = loader.DefaultOptions()
	}
	if cfg.Limits == (loader.Limits{}) {
		cfg.Limits = loader.DefaultLimits()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = session.DefaultTTL
	}
	if cfg.Hooks == nil {
		cfg.Hooks = observability.NoopLoaderHooks{}
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	s := &Server{cfg: cfg, logger: cfg.Logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/responsive", s.handleResponsive)
		r.Post("/layout", s.handleLayout)
		r.Get("/galleries/{id}/layout", s.handleGalleryLayout)

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{sid}", func(r chi.Router) {
			r.Use(s.withSession)
			r.Post("/observe", s.handleObserve)
			r.Post("/unobserve", s.handleUnobserve)
			r.Post("/visible", s.handleVisible)
			r.Post("/loaded", s.handleLoaded)
			r.Post("/failed", s.handleFailed)
			r.Post("/preload", s.handlePreload)
			r.Post("/clear", s.handleClear)
			r.Get("/metrics", s.handleMetrics)
			r.Get("/state", s.handleState)
			r.Delete("/", s.handleDeleteSession)
		})
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully and closes every session.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close closes every session and waits for their governors to stop.
func (s *Server) Close() {
	s.cfg.Sessions.Close()
	s.runners.Wait()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}
