package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/singnet/snet-marketplace-service-sub000/internal/api/handlers"
	"github.com/singnet/snet-marketplace-service-sub000/internal/api/middleware"
	"github.com/singnet/snet-marketplace-service-sub000/internal/auth"
	"github.com/singnet/snet-marketplace-service-sub000/internal/publisher"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     auth.TokenService
	Publisher      *publisher.Service
	AsynqClient    *asynq.Client // nil applies chain events inline
	AllowedOrigins []string      // CORS allowed origins
	PublishLimiter *middleware.RateLimiter // nil disables publish rate limiting
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	// CORS - restrict to configured origins, or allow the local portal in development
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	orgHandler := handlers.NewOrganizationHandler(cfg.Publisher, cfg.Logger)
	serviceHandler := handlers.NewServiceHandler(cfg.Publisher, cfg.Logger)
	memberHandler := handlers.NewMemberHandler(cfg.Publisher, cfg.Logger)
	reviewHandler := handlers.NewReviewHandler(cfg.Publisher, cfg.Logger)
	systemHandler := handlers.NewSystemHandler(cfg.Publisher, cfg.AsynqClient, cfg.Logger)

	publishLimit := func(next http.Handler) http.Handler { return next }
	if cfg.PublishLimiter != nil {
		publishLimit = middleware.RateLimit(cfg.PublishLimiter)
	}

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTService))

		// Publisher endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RolePublisher, auth.RoleApprover))

			r.Route("/organizations", func(r chi.Router) {
				r.Get("/", orgHandler.List)
				r.Post("/", orgHandler.Create)

				r.Route("/{orgUUID}", func(r chi.Router) {
					r.Get("/", orgHandler.Get)
					r.Put("/", orgHandler.Update)
					r.Post("/submit", orgHandler.Submit)
					r.Post("/onboard", orgHandler.Onboard)
					r.With(publishLimit).Post("/publish", orgHandler.Publish)
					r.Post("/transaction", orgHandler.SaveTransaction)
					r.Get("/history", orgHandler.History)
					r.Get("/comments", orgHandler.ListComments)
					r.Post("/comments", orgHandler.AddComment)

					r.Route("/members", func(r chi.Router) {
						r.Get("/", memberHandler.List)
						r.Post("/invite", memberHandler.Invite)
						r.Post("/transaction", memberHandler.SaveTransaction)
					})

					r.Route("/services", func(r chi.Router) {
						r.Get("/", serviceHandler.List)
						r.Post("/", serviceHandler.Create)
						r.Get("/availability", serviceHandler.Availability)

						r.Route("/{serviceUUID}", func(r chi.Router) {
							r.Get("/", serviceHandler.Get)
							r.Put("/", serviceHandler.Update)
							r.Post("/submit", serviceHandler.Submit)
							r.With(publishLimit).Post("/publish", serviceHandler.Publish)
							r.Post("/transaction", serviceHandler.SaveTransaction)
							r.Get("/history", serviceHandler.History)
							r.Get("/comments", serviceHandler.ListComments)
							r.Post("/comments", serviceHandler.AddComment)
						})
					})
				})
			})

			// Invitees are publishers that do not own the organization yet
			r.Get("/invites/{code}", memberHandler.Verify)
			r.Post("/invites/register", memberHandler.Register)
		})

		// Approver endpoints
		r.Route("/review", func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleApprover))
			r.Get("/organizations", reviewHandler.Queue)
			r.Post("/organizations/{orgUUID}", reviewHandler.ReviewOrganization)
			r.Post("/organizations/{orgUUID}/services/{serviceUUID}", reviewHandler.ReviewService)
		})

		// Marketplace components
		r.Route("/system", func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleSystem))
			r.Post("/chain-events", systemHandler.ChainEvent)
			r.Post("/ratings", systemHandler.UpdateRating)
		})
	})

	return &Router{r}
}
