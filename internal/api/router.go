package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"ctiforge/internal/api/handlers"
	apimiddleware "ctiforge/internal/api/middleware"
	"ctiforge/internal/config"
	"ctiforge/pkg/logger"
)

// Router holds dependencies for the API router
type Router struct {
	config   config.Config
	handlers *handlers.Handlers
	logger   *logger.Logger
}

// NewRouter creates a new Router instance
func NewRouter(cfg config.Config, h *handlers.Handlers, log *logger.Logger) *Router {
	return &Router{
		config:   cfg,
		handlers: h,
		logger:   log.WithComponent("router"),
	}
}

// Setup sets up the Chi router with all routes and middleware
func (r *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(apimiddleware.Logger(r.logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.config.CORS.AllowedOrigins,
		AllowedMethods:   r.config.CORS.AllowedMethods,
		AllowedHeaders:   r.config.CORS.AllowedHeaders,
		AllowCredentials: r.config.CORS.AllowCredentials,
		MaxAge:           r.config.CORS.MaxAge,
	}))

	router.Get("/health", r.handlers.Health.Check)
	router.Get("/ready", r.handlers.Health.Ready)

	router.Route("/api/v1", func(api chi.Router) {
		api.Get("/stats", r.handlers.Stats.Get)

		api.Route("/campaigns", func(campaigns chi.Router) {
			campaigns.Get("/", r.handlers.Campaigns.List)
			campaigns.Get("/{id}", r.handlers.Campaigns.Get)
			campaigns.Get("/{id}/events", r.handlers.Campaigns.ListEvents)
		})

		api.Route("/scores", func(scores chi.Router) {
			scores.Get("/", r.handlers.Scores.List)
			scores.Get("/{event_id}", r.handlers.Scores.Get)
		})
	})

	return router
}
