package handlers

import (
	"time"

	"gridverse/internal/services"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports process liveness and headline session counts.
type HealthHandler struct {
	circuits *services.CircuitManager
	caps     *services.CapabilityRegistry
	started  time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(circuits *services.CircuitManager, caps *services.CapabilityRegistry) *HealthHandler {
	return &HealthHandler{circuits: circuits, caps: caps, started: time.Now()}
}

// Handle returns the health check response
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"circuits":       h.circuits.Count(),
		"capabilities":   h.caps.Count(),
	})
}
