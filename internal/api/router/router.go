package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/riskdesk-demo/internal/http/middleware"
	"github.com/wolfman30/riskdesk-demo/internal/http/response"
	"github.com/wolfman30/riskdesk-demo/internal/intake"
	"github.com/wolfman30/riskdesk-demo/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	IntakeHandler      *intake.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// TrustProxyHeaders enables chi's RealIP, which rewrites RemoteAddr from
	// client-supplied headers. Leave off unless a proxy overwrites them.
	TrustProxyHeaders bool

	// RateLimiter guards the submission endpoint. Nil disables limiting.
	RateLimiter httpmiddleware.Limiter
	// OnRateLimited is called for each rejected submission.
	OnRateLimited func()
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg.IntakeHandler == nil {
		panic("router: intake handler required")
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, response.CodeNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, response.CodeBadMethod, "Method not allowed")
	})

	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.With(httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
			Limiter:   cfg.RateLimiter,
			Logger:    cfg.Logger,
			OnLimited: cfg.OnRateLimited,
		})).Post("/demo-requests", cfg.IntakeHandler.Create)
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
