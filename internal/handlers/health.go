package handlers

import (
	"net/http"

	"github.com/anonto42/hexagon/backend/internal/notifier"
	"github.com/labstack/echo/v4"
)

// ConnectionCounter reports how many live channels are open.
type ConnectionCounter interface {
	Len() int
}

// DeliveryStats exposes per-stage delivery counters.
type DeliveryStats interface {
	Snapshot() map[notifier.Stage]notifier.StageStats
}

// HealthHandler serves the unauthenticated health endpoint
type HealthHandler struct {
	connections ConnectionCounter
	delivery    DeliveryStats
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(connections ConnectionCounter, delivery DeliveryStats) *HealthHandler {
	return &HealthHandler{connections: connections, delivery: delivery}
}

// HealthCheck reports status along with connection and delivery counts
func (h *HealthHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":      "healthy",
		"service":     "hexagon-notifications",
		"connections": h.connections.Len(),
		"delivery":    h.delivery.Snapshot(),
	})
}
