package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string
	// AnalyzeRatePerMinute limits analyze calls per client IP. Zero disables it.
	AnalyzeRatePerMinute int
}

// Router mounts the session API, health check and metrics
func (h *Handler) Router(opts RouterOptions) http.Handler {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	analyzeLimit := func(next http.Handler) http.Handler { return next }
	if opts.AnalyzeRatePerMinute > 0 {
		analyzeLimit = httprate.LimitByIP(opts.AnalyzeRatePerMinute, time.Minute)
	}

	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", h.HandleListSessions)
		r.Post("/", h.HandleCreateSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.HandleGetSession)
			r.Delete("/", h.HandleDeleteSession)

			r.Post("/images", h.HandleUpload)
			r.Delete("/images/{index}", h.HandleRemoveImage)
			r.Get("/previews/{previewID}", h.HandlePreview)

			r.With(analyzeLimit).Post("/analyze", h.HandleAnalyze)
			r.Post("/cancel", h.HandleCancel)
			r.Post("/restage", h.HandleRestage)
			r.Post("/reset", h.HandleReset)
			r.Get("/export", h.HandleExport)
		})
	})

	return r
}
