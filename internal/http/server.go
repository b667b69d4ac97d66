package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	applog "fuellog/internal/log"
	"fuellog/internal/metrics"
	"fuellog/internal/middleware/ratelimit"
	"fuellog/internal/middleware/security"
	"fuellog/internal/middleware/trace"
	"fuellog/internal/services"
)

const (
	DefaultRequestTimeout = 60 * time.Second
	readyTimeout          = 5 * time.Second
)

// Services are the application services behind the API.
type Services struct {
	Entries     *services.EntryService
	Reference   *services.ReferenceService
	Suggestions *services.SuggestionService
}

type Config struct {
	Addr               string
	RateLimitPerMinute int
	// RequestTimeout bounds each handler; zero uses DefaultRequestTimeout.
	RequestTimeout time.Duration
	// Ready reports whether the backing store is reachable. Nil means always ready.
	Ready   func(ctx context.Context) error
	Metrics *metrics.Metrics
	Logger  *applog.Logger
}

// Server is the fuel log HTTP API.
type Server struct {
	http.Server

	entries     *services.EntryService
	reference   *services.ReferenceService
	suggestions *services.SuggestionService

	ready    func(ctx context.Context) error
	metrics  *metrics.Metrics
	logger   *applog.Logger
	log      *applog.StructuredLogger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, svc Services) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.Default(applog.ComponentHTTP)
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	s := &Server{
		entries:     svc.Entries,
		reference:   svc.Reference,
		suggestions: svc.Suggestions,
		ready:       cfg.Ready,
		metrics:     cfg.Metrics,
		logger:      logger,
		log:         applog.NewStructuredLogger(logger),
		limiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		detector:    security.NewDetector(cfg.Metrics.SuspiciousRequest),
		started:     time.Now(),
	}
	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(timeout),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) routes(timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	tracer := trace.NewMiddleware(s.detector.ClientIP, s.logger, s.observe)
	r.Use(tracer.Middleware)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(trace.RequestID))
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(middleware.Timeout(timeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such endpoint").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", s.metrics.Handler())

	// Writes and suggestion calls share the per-client limit. Reads and
	// entry previews only compute and are not limited.
	limit := s.limiter.Middleware(s.detector.ClientIP, s.onRateLimited)

	r.Route("/api", func(r chi.Router) {
		r.Get("/vehicles", s.handleListVehicles)
		r.With(limit).Post("/vehicles", s.handleCreateVehicle)
		r.Get("/drivers", s.handleListDrivers)
		r.With(limit).Post("/drivers", s.handleCreateDriver)

		r.Route("/prices", func(r chi.Router) {
			r.Get("/", s.handleListPrices)
			r.With(limit).Post("/suggest", s.handleSuggestPrice)
			r.With(limit).Put("/{fuelType}", s.handleUpdatePrice)
		})

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", s.handleListEntries)
			r.With(limit).Post("/", s.handleCreateEntry)
			r.Post("/preview", s.handlePreviewEntry)
			r.Get("/export", s.handleExportEntries)
			r.With(limit).Post("/sync", s.handleSyncEntries)
			r.Get("/{id}", s.handleGetEntry)
		})

		r.Get("/dashboard", s.handleDashboard)
	})

	return r
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimited()
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

func (s *Server) observe(r *http.Request, status int, elapsed time.Duration) {
	route := ""
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		route = rctx.RoutePattern()
	}
	s.metrics.ObserveHTTP(route, r.Method, status, elapsed)
}

// Shutdown stops the rate limiter and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
