package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-bot/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Stats   *handlers.StatsHandler
	Tickets *handlers.TicketsHandler
}

// RegisterRoutes wires the read-only ops routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/stats", cfg.Stats.Get)
	app.Get("/tickets/open", cfg.Tickets.ListOpen)
}
