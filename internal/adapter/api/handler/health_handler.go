package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	ws "farmconnect/internal/infrastructure/websocket"
)

type HealthHandler struct {
	registry *ws.Registry
}

func NewHealthHandler(registry *ws.Registry) *HealthHandler {
	return &HealthHandler{
		registry: registry,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "Server is running",
		"time":     time.Now().Format(time.RFC3339),
		"sessions": h.registry.Count(),
	})
}
