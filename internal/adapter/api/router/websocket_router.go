package router

import (
	"github.com/labstack/echo/v4"

	"farmconnect/internal/adapter/api/handler"
)

// SetupWebSocketRouter sets up WebSocket routes. The handler authenticates
// before upgrading, so no auth middleware here.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/ws", wsHandler.HandleWebSocket)
}
