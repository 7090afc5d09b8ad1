package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/record-api/internal/adapter/api/handler"
	"github.com/user/record-api/internal/adapter/api/middleware"
	"github.com/user/record-api/internal/adapter/ratelimit"
	"github.com/user/record-api/internal/pkg/config"
	"github.com/user/record-api/internal/usecase"
)

// NewRouter creates and configures the main HTTP router.
//
// Middleware order matters: the rate limiter runs after auth on protected
// routes so windows are keyed by user identity, while the unauthenticated
// login route is limited by remote address under the stricter auth class.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	limiter *ratelimit.Limiter,
	authService *usecase.AuthService,
	interactions *usecase.InteractionService,
	users *usecase.UserService,
	sites *usecase.SiteService,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))

	authHandler := handler.NewAuthHandler(authService, logger)
	interactionHandler := handler.NewInteractionHandler(interactions, logger)
	userHandler := handler.NewUserHandler(users, logger)
	siteHandler := handler.NewSiteHandler(sites, logger)

	authLimit := middleware.RateLimit(limiter, logger, middleware.ClassAuth, cfg.RateLimitAuth, cfg.RateLimitWindow)
	methodLimit := middleware.ByMethod(limiter, logger, cfg.RateLimitRead, cfg.RateLimitWrite, cfg.RateLimitWindow)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authLimit)
			r.Post("/auth/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authService, logger))
			r.Use(methodLimit)

			r.Post("/auth/logout", authHandler.Logout)
			r.Route("/interactions", interactionHandler.Routes)
			r.Route("/users", userHandler.Routes)
			r.Route("/sites", siteHandler.Routes)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}
