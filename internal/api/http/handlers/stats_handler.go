package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-bot/internal/observability"
)

// StatsHandler exposes the poll loop counters.
type StatsHandler struct {
	metrics *observability.Metrics
}

// NewStatsHandler constructs handler.
func NewStatsHandler(metrics *observability.Metrics) *StatsHandler {
	return &StatsHandler{metrics: metrics}
}

// Get GET /stats.
func (h *StatsHandler) Get(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
