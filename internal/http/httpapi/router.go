package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"mediagen/internal/http/handlers"
	"mediagen/internal/infra"
	"mediagen/internal/middleware"
)

// RouterOptions tunes the middleware stack.
type RouterOptions struct {
	Logger *infra.Logger
	// GenerationsPerMinute limits POST /v1/generations per client IP; zero disables it.
	GenerationsPerMinute int
}

func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer)
	if opts.Logger != nil {
		r.Use(middleware.Logger(*opts.Logger))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/providers", app.Providers)
		r.Get("/schema/generation-script", app.ScriptSchema)
		r.Get("/metrics/trackers", app.TrackerMetrics)
		r.Get("/contexts/{user_key}", app.GetContext)
		r.Put("/contexts/{user_key}", app.PutContext)

		r.Route("/generations", func(r chi.Router) {
			r.With(middleware.RateLimit(opts.GenerationsPerMinute, time.Minute)).Post("/", app.CreateGeneration)
			r.Route("/{job_id}", func(r chi.Router) {
				r.Get("/", app.GenerationStatus)
				r.Delete("/", app.CancelGeneration)
				r.Get("/artifact", app.GenerationArtifact)
			})
		})
	})

	return r
}
