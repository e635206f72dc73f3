package usecase

import (
	"context"

	"farmconnect/internal/domain/entity"
	ws "farmconnect/internal/infrastructure/websocket"
)

// Authenticator resolves a bearer token into a trusted identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (entity.Identity, error)
}

// RoomHub is the room multiplexer as seen by the use cases.
type RoomHub interface {
	Subscribe(ctx context.Context, session *ws.Session, conversationID string) (*entity.Conversation, error)
	Unsubscribe(session *ws.Session, conversationID string) bool
	Broadcast(conversationID string, event ws.Event) int
	BroadcastExceptUser(conversationID, userID string, event ws.Event) int
	SendToSession(session *ws.Session, event ws.Event) bool
	UserInRoom(conversationID, userID string) bool
}

// TypingStopper clears a typing flag, e.g. once the user sends their message.
type TypingStopper interface {
	StopTyping(conversationID, userID string) bool
}
