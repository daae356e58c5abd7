package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/snipvault/snipvault/internal/telemetry"
)

type App struct {
	Health   *HealthHandler
	Snippets *SnippetsHandler
	Cloud    *CloudHandler
	APIKeys  *APIKeysHandler

	Auth    Authenticator
	Limiter RateLimiter

	// LocalToken backs the Access-Control gate on the endpoints the
	// cloud platform calls into.
	LocalToken func(ctx context.Context) string
}

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(telemetry.ChiLogMiddleware("snipvault-api"))
	r.Use(telemetry.ChiTraceMiddleware("snipvault-api"))
	r.Use(telemetry.ChiMetricsMiddleware)

	r.Get("/health", app.Health.Get)

	r.Route("/v1", func(r chi.Router) {

		r.Route("/snippets", func(r chi.Router) {
			r.Use(AuthMiddleware(app.Auth))
			r.Post("/", app.Snippets.Create)
			r.Get("/", app.Snippets.List)
			r.Get("/{id}", app.Snippets.GetByID)
			r.Put("/{id}", app.Snippets.Update)
			r.Delete("/{id}", app.Snippets.Delete)
		})

		r.Route("/cloud", func(r chi.Router) {
			// OAuth callback carries its own state check, so it is
			// throttled rather than key-authenticated.
			r.Group(func(r chi.Router) {
				r.Use(RateLimitMiddleware(app.Limiter, "callback"))
				r.Get("/callback", app.Cloud.Callback)
			})

			// Cloud-initiated endpoints authenticate with the local
			// token instead of an API key.
			r.Group(func(r chi.Router) {
				r.Use(AccessControlGate(app.LocalToken))

				r.Delete("/", app.Cloud.RemoveSync)
				r.Post("/ai/prompt", app.Cloud.AIPrompt)
				r.Post("/ai/explain", app.Cloud.AIExplain)

				r.Group(func(r chi.Router) {
					r.Use(RateLimitMiddleware(app.Limiter, "push"))
					r.Post("/snippet", app.Cloud.Push)
				})
			})

			r.Group(func(r chi.Router) {
				r.Use(AuthMiddleware(app.Auth))

				r.Get("/status", app.Cloud.Status)
				r.Get("/connect", app.Cloud.Connect)
				r.Post("/verify", app.Cloud.Verify)

				r.Get("/links", app.Cloud.Links)
				r.Get("/codevault", app.Cloud.Codevault)
				r.Get("/search", app.Cloud.Search)

				r.Get("/bundles", app.Cloud.Bundles)
				r.Post("/bundles/import", app.Cloud.ImportBundle)

				r.Route("/sync", func(r chi.Router) {
					r.Post("/upload", app.Cloud.SyncUpload)
					r.Post("/push", app.Cloud.SyncPush)
					r.Post("/download", app.Cloud.SyncDownload)
					r.Post("/unsync", app.Cloud.SyncUnsync)
				})
			})
		})

		r.Route("/keys", func(r chi.Router) {
			r.Use(AuthMiddleware(app.Auth))
			r.Use(RequireAdmin)
			r.Post("/", app.APIKeys.Create)
			r.Get("/", app.APIKeys.List)
			r.Delete("/{id}", app.APIKeys.Revoke)
		})
	})

	return r
}
