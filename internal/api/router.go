package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sreejitheg/DFES/internal/api/middleware"
	"github.com/sreejitheg/DFES/internal/config"
	"github.com/sreejitheg/DFES/internal/handlers"
	"github.com/sreejitheg/DFES/internal/relay"
	"github.com/sreejitheg/DFES/internal/webhook"
)

// jsonBodyLimit caps the JSON endpoints; the voice upload gets its own
// limit derived from the configured audio cap plus form overhead.
const jsonBodyLimit = 64 * 1024

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, cfg *config.Config, rly *relay.Relay, hooks *webhook.Dispatcher) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// CORS - allow all origins (browser clients connect from anywhere)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Cache-Control"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(rly, hooks, cfg, logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.ClientConfig)
		r.Get("/stream", h.Stream)
		r.With(middleware.MaxBodySize(jsonBodyLimit)).Post("/incoming", h.Incoming)
		r.With(middleware.MaxBodySize(jsonBodyLimit)).Post("/send-text", h.SendText)
		r.With(middleware.MaxBodySize(cfg.MaxAudioBytes+jsonBodyLimit)).Post("/send-voice", h.SendVoice)
	})

	return r
}
