// Package api provides the local HTTP API for a browsing session.
package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/wesm/ologbrowse/internal/browse"
	"github.com/wesm/ologbrowse/internal/config"
	"github.com/wesm/ologbrowse/internal/logbook"
	"github.com/wesm/ologbrowse/internal/scheduler"
	"github.com/wesm/ologbrowse/internal/search"
)

const (
	apiKeyHeader        = "X-API-Key"
	defaultRateLimitQPS = 10
)

// Session defines the browsing session operations the API needs.
type Session interface {
	Snapshot() browse.View
	ApplyQuery(q string) search.Criteria
	SetPageParams(p search.PageParams)
	Refresh()
	DismissError()
	Client() logbook.Client
}

// JobScheduler defines the scheduler operations the API needs.
type JobScheduler interface {
	IsScheduled(name string) bool
	Trigger(name string) error
	Status() []JobStatus
	IsRunning() bool
}

// JobStatus is an alias for scheduler.JobStatus.
type JobStatus = scheduler.JobStatus

// Server represents the HTTP API server.
type Server struct {
	cfg         *config.Config
	session     Session
	scheduler   JobScheduler
	logger      *slog.Logger
	router      chi.Router
	server      *http.Server
	rateLimiter *RateLimiter
}

// NewServer creates a new API server. session and sched may be nil; the
// routes that need them then answer 503.
func NewServer(cfg *config.Config, session Session, sched JobScheduler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		session:   session,
		scheduler: sched,
		logger:    logger,
	}
	s.router = s.setupRouter()
	return s
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID, s.requestLog, chimw.Recoverer, chimw.Timeout(60*time.Second))
	r.Use(CORSMiddleware(s.corsConfig()))

	qps := s.cfg.Server.RateLimitQPS
	if qps <= 0 {
		qps = defaultRateLimitQPS
	}
	s.rateLimiter = NewRateLimiter(qps, int(math.Ceil(qps*2)))
	r.Use(RateLimitMiddleware(s.rateLimiter))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/results", s.handleResults)
		r.Post("/refresh", s.handleRefresh)
		r.Delete("/error", s.handleDismissError)

		r.Get("/query", s.handleGetQuery)
		r.Put("/query", s.handlePutQuery)
		r.Put("/page", s.handlePutPage)

		r.Get("/entries/{id}", s.handleGetEntry)

		r.Get("/logbooks", s.handleListLogbooks)
		r.Get("/tags", s.handleListTags)

		r.Get("/scheduler/status", s.handleSchedulerStatus)
		r.Post("/scheduler/jobs/{name}/run", s.handleTriggerJob)
	})

	return r
}

// corsConfig builds the CORS policy from [server]. No origins means no CORS
// headers at all.
func (s *Server) corsConfig() CORSConfig {
	c := CORSConfig{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", apiKeyHeader},
		AllowCredentials: s.cfg.Server.CORSCredentials,
		MaxAge:           s.cfg.Server.CORSMaxAge,
	}
	if c.MaxAge == 0 && len(c.AllowedOrigins) > 0 {
		c.MaxAge = int((24 * time.Hour).Seconds())
	}
	return c
}

// Start listens on [server] bind_addr:api_port until Shutdown. It refuses to
// start on a non-loopback address without an API key.
func (s *Server) Start() error {
	if err := s.cfg.Server.ValidateSecure(); err != nil {
		return err
	}

	host := s.cfg.Server.BindAddr
	if host == "" {
		host = "127.0.0.1"
	}
	addr := net.JoinHostPort(host, strconv.Itoa(s.cfg.Server.APIPort))
	if s.cfg.Server.APIKey == "" {
		s.logger.Warn("api key not set, requests are not authenticated", "addr", addr)
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("api server listening", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown stops the rate limiter janitor and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}
	if s.server == nil {
		return nil
	}
	s.logger.Info("api server stopping")
	return s.server.Shutdown(ctx)
}

// Router exposes the handler tree for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

// requestAPIKey returns the key from Authorization (optionally "Bearer "
// prefixed) or, failing that, from X-API-Key.
func requestAPIKey(r *http.Request) string {
	key := r.Header.Get("Authorization")
	if key == "" {
		key = r.Header.Get(apiKeyHeader)
	}
	return strings.TrimPrefix(key, "Bearer ")
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := s.cfg.Server.APIKey
		if want != "" && subtle.ConstantTimeCompare([]byte(requestAPIKey(r)), []byte(want)) != 1 {
			s.logger.Warn("rejected request without valid api key", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
