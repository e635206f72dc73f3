package handler

import (
	ws "farmconnect/internal/infrastructure/websocket"
	"farmconnect/internal/usecase"
)

var (
	chatHandler   *ChatHandler
	healthHandler *HealthHandler
)

func Setup(
	chatUseCase *usecase.ChatUseCase,
	negotiationUseCase *usecase.NegotiationUseCase,
	registry *ws.Registry,
) {
	chatHandler = NewChatHandler(chatUseCase, negotiationUseCase)
	healthHandler = NewHealthHandler(registry)
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}
