package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-steps-nosql/internal/config"
	"github.com/go-steps-nosql/internal/transport/http/handler"
	appmiddleware "github.com/go-steps-nosql/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.RequestLog)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(appmiddleware.Metrics(deps.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", cfg.IdentityHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	var verifier appmiddleware.TokenVerifier
	if deps.Verifier != nil {
		verifier = deps.Verifier
	}
	identity := appmiddleware.Identity(cfg.IdentityHeader, verifier)
	submitRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, cfg.TrustProxyHeaders)

	healthH := handler.NewHealthHandler()
	stepsH := handler.NewStepsHandler(deps.Submissions)
	totalsH := handler.NewTotalsHandler(deps.Totals)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)
		r.Get("/steps/total", totalsH.Get)
		r.Get("/steps/total/running", totalsH.Running)

		r.Group(func(r chi.Router) {
			r.Use(identity)
			r.With(submitRL.Limit).Post("/steps", stepsH.Submit)
			r.Post("/steps/total/snapshot", totalsH.Snapshot)
		})
	})

	return r
}
