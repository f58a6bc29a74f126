package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"nudgify/internal/cache"
	applog "nudgify/internal/log"
	"nudgify/internal/middleware/ratelimit"
	"nudgify/internal/middleware/security"
	"nudgify/internal/middleware/trace"
	"nudgify/internal/services"
)

// Options configures the HTTP server. Zero values select defaults.
type Options struct {
	Addr              string
	MaxUploadBytes    int64
	DefaultBudget     decimal.Decimal
	CacheSize         int
	CacheTTL          time.Duration
	RequestsPerMinute int
	Logger            *applog.Logger
}

const (
	defaultMaxUploadBytes = 5 << 20
	defaultCacheSize      = 256
	defaultCacheTTL       = 10 * time.Minute
	analyzeTimeout        = 30 * time.Second
)

type Server struct {
	http.Server
	analyzer *services.Analyzer
	opts     Options
	logger   *applog.Logger

	reports      *cache.LRUCache[services.Report]
	cacheManager *cache.Manager
	rateLimiter  *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	started      time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware around analyzer, returning a
// ready-to-run server. Call Shutdown to stop background cleanup.
func NewServer(analyzer *services.Analyzer, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	logger := opts.Logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		analyzer:     analyzer,
		opts:         opts,
		logger:       logger,
		reports:      cache.NewLRUCache[services.Report](opts.CacheSize, opts.CacheTTL),
		cacheManager: cache.NewManager(logger.Slog()),
		rateLimiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		detector:     security.NewDetector(),
		started:      time.Now(),
	}
	s.tracer = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)
	s.cacheManager.Register(s.reports)
	s.cacheManager.StartCleanup(opts.CacheTTL)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64KB
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware(s.opts.Logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, r, NotFoundError("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, r, MethodNotAllowedError("method not allowed"))
	})

	r.Get("/health", handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", s.handleCategories)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit))
			r.Post("/analyze/csv", s.handleAnalyzeCSV)
			r.Post("/analyze/text", s.handleAnalyzeText)
			r.Post("/analyze/rows", s.handleAnalyzeRows)
			r.Post("/analyze/sheet", s.handleAnalyzeSheet)
		})
	})
	return r
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
