package router

import (
	"github.com/labstack/echo/v4"

	"farmconnect/internal/adapter/api/handler"
	"farmconnect/internal/adapter/api/middleware"
	"farmconnect/internal/infrastructure/ratelimit"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, wsHandler *handler.WebSocketHandler, limiter *ratelimit.RateLimiter) {
	SetupChatRouter(e, handler.GetChatHandler(), authMiddleware, limiter)
	SetupWebSocketRouter(e, wsHandler)
	SetupHealthRouter(e)
}
