package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/webforms/sheetsink/config"
	"github.com/webforms/sheetsink/notify"
	"github.com/webforms/sheetsink/ratelimit"
	"github.com/webforms/sheetsink/routes/middlewares"
	"github.com/webforms/sheetsink/sink"
)

func Wire(cfg config.Config, sk sink.Sink, limiter *ratelimit.Limiter, notifier *notify.Notifier) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.Logger, middleware.Recoverer)

	// The front-end posts cross-origin; preflight OPTIONS is answered
	// here before any other check runs.
	root.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	root.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Single intake route. All methods land here so the validator can
	// reject in its documented order (content type before method).
	root.
		With(middlewares.RateLimit(limiter), middlewares.Validate(cfg.APISecret)).
		HandleFunc("/", SubmitIntake(cfg.DefaultSheetID, sk, notifier))

	return root
}
