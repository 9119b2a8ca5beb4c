package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/blogauth/auth-service/internal/api/http/handlers"
	"github.com/blogauth/auth-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Metrics        *handlers.MetricsHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Get)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/login/form", cfg.Auth.LoginForm)
	authGroup.Post("/register", cfg.Auth.Register)

	authGroup.Get("/token", cfg.AuthMiddleware.Handle, cfg.Auth.Token)
}
