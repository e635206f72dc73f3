package usecase

import (
	"context"
	"time"

	"farmconnect/internal/infrastructure/metrics"
	"farmconnect/internal/infrastructure/presence"
	ws "farmconnect/internal/infrastructure/websocket"
	"farmconnect/pkg/errors"
	"farmconnect/pkg/logger"
)

const defaultTypingTTL = 5 * time.Second

// PresenceUseCase relays typing indicators to the other participant of a room.
type PresenceUseCase struct {
	hub     RoomHub
	tracker *presence.TypingTracker
}

func NewPresenceUseCase(hub RoomHub, typingTTL time.Duration) *PresenceUseCase {
	if typingTTL <= 0 {
		typingTTL = defaultTypingTTL
	}
	uc := &PresenceUseCase{hub: hub}
	uc.tracker = presence.NewTypingTracker(typingTTL, uc.notify)
	return uc
}

// Run expires stale typing flags until ctx is cancelled.
func (uc *PresenceUseCase) Run(ctx context.Context) {
	uc.tracker.Run(ctx)
}

// StartTyping marks the session's user as typing. The session must already
// be subscribed to the conversation.
func (uc *PresenceUseCase) StartTyping(session *ws.Session, conversationID string) error {
	if err := requireJoined(session, conversationID); err != nil {
		return err
	}
	uc.tracker.StartTyping(conversationID, session.UserID)
	return nil
}

func (uc *PresenceUseCase) StopTypingFor(session *ws.Session, conversationID string) error {
	if err := requireJoined(session, conversationID); err != nil {
		return err
	}
	uc.tracker.StopTyping(conversationID, session.UserID)
	return nil
}

// StopTyping clears the flag regardless of subscriptions.
func (uc *PresenceUseCase) StopTyping(conversationID, userID string) bool {
	return uc.tracker.StopTyping(conversationID, userID)
}

func (uc *PresenceUseCase) IsTyping(conversationID, userID string) bool {
	return uc.tracker.IsTyping(conversationID, userID)
}

// HandleLeave is registered as a hub leave callback. The flag is cleared only
// once the user has no session left in the room.
func (uc *PresenceUseCase) HandleLeave(session *ws.Session, conversationID string) {
	if uc.hub.UserInRoom(conversationID, session.UserID) {
		return
	}
	if uc.tracker.StopTyping(conversationID, session.UserID) {
		logger.Debug("Presence: cleared typing for user %s who left conversation %s", session.UserID, conversationID)
	}
}

func (uc *PresenceUseCase) notify(conversationID, userID string, typing bool) {
	eventType, state := ws.EventUserStoppedTyping, "stopped"
	if typing {
		eventType, state = ws.EventUserTyping, "started"
	}
	metrics.TypingTransitions.WithLabelValues(state).Inc()

	uc.hub.BroadcastExceptUser(conversationID, userID, ws.NewEvent(eventType, ws.TypingData{
		ConversationID: conversationID,
		UserID:         userID,
	}))
}

func requireJoined(session *ws.Session, conversationID string) error {
	if session.ConversationID() != conversationID {
		return errors.BadRequest("Join the conversation before sending typing events", nil)
	}
	return nil
}
