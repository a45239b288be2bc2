package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/uatops/uat-router/internal/api/http/handlers"
	"github.com/uatops/uat-router/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Routing     *handlers.RoutingHandler
	Identities  *handlers.IdentityHandler
	Metrics     *handlers.MetricsHandler
	FunctionKey *auth.FunctionKeyMiddleware
}

// RegisterRoutes wires HTTP routes. Health and metrics stay open; routing and search
// require the function key when one is configured.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Snapshot)

	api := app.Group("/api")
	api.Get("/health", cfg.Health.Status)

	guard := cfg.FunctionKey.Handle
	api.Post("/uat-routing", guard, cfg.Routing.Route)
	api.Post("/uat-routing-batch", guard, cfg.Routing.RouteBatch)
	api.Get("/identities/search", guard, cfg.Identities.Search)
}
