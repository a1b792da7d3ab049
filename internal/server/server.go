// Package server assembles the HTTP router: middleware, the catalog and loan
// endpoints, health and metrics.
package server

import (
	"net/http"
	"time"

	"libracatalog/internal/catalog"
	"libracatalog/internal/circulation"
	domainerrors "libracatalog/internal/errors"
	"libracatalog/internal/http/response"
	"libracatalog/internal/telemetry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Options configure the router.
type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	// Metrics is optional; nil disables /metrics and request metrics.
	Metrics *telemetry.HTTPMetrics
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	router  *chi.Mux
	catalog *catalog.Handler
	loans   *circulation.Handler
	limiter *clientLimiter
	metrics *telemetry.HTTPMetrics
	log     *zap.Logger
}

// New creates a server with all routes configured.
func New(catalogSvc catalog.Service, loanSvc circulation.Service, log *zap.Logger, opts Options) *Server {
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 5
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 10
	}

	s := &Server{
		router:  chi.NewRouter(),
		catalog: catalog.NewHandler(catalogSvc, log),
		loans:   circulation.NewHandler(loanSvc, log),
		limiter: newClientLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		metrics: opts.Metrics,
		log:     log,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	s.catalog.Routes(s.router)

	// Loan mutations are rate limited per client.
	s.router.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		s.loans.Routes(r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{"status": "ok"}, s.log)
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && !s.limiter.allow(clientKey(r)) {
			w.Header().Set("Retry-After", "1")
			response.JSON(w, http.StatusTooManyRequests, response.ErrorBody{
				Code:    domainerrors.CodeRateLimited,
				Message: "rate limit exceeded",
			}, s.log)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
