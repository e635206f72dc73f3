package router

import (
	"github.com/labstack/echo/v4"

	"farmconnect/internal/adapter/api/handler"
	"farmconnect/internal/adapter/api/middleware"
	"farmconnect/internal/infrastructure/ratelimit"
	ws "farmconnect/internal/infrastructure/websocket"
)

// SetupChatRouter sets up the REST side of conversations. Realtime traffic
// goes through /ws.
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	conversations := e.Group("/v1/conversations")
	conversations.Use(authMiddleware.Authenticate)

	conversations.POST("", chatHandler.CreateConversation, middleware.RateLimit(limiter, ws.EventJoinConversation))
	conversations.GET("", chatHandler.ListConversations)
	conversations.GET("/:id", chatHandler.GetConversation)

	conversations.GET("/:id/messages", chatHandler.GetMessages)
	conversations.POST("/:id/messages", chatHandler.SendMessage, middleware.RateLimit(limiter, ws.EventSendMessage))

	conversations.POST("/:id/negotiation", chatHandler.Negotiate, middleware.RateLimit(limiter, ws.EventNegotiatePrice)) // accept or reject the pending offer
	conversations.POST("/:id/cart/retry", chatHandler.RetryCart, middleware.RateLimit(limiter, ws.EventRetryCart))
}
