package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/samber/lo"

	"farmconnect/internal/domain/entity"
	"farmconnect/internal/infrastructure/metrics"
	"farmconnect/pkg/errors"
	"farmconnect/pkg/logger"
)

// ConversationLookup is the part of the conversation store the hub needs to
// verify membership.
type ConversationLookup interface {
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
}

// LeaveFunc is called after a session leaves a room, whether by switching
// rooms, leaving explicitly or disconnecting.
type LeaveFunc func(session *Session, conversationID string)

// Hub owns the room subscriptions: conversation id -> subscribed sessions.
// A session is in at most one room.
type Hub struct {
	lookup ConversationLookup

	mu    sync.RWMutex
	rooms map[string]map[string]*Session

	leaveMu sync.RWMutex
	onLeave []LeaveFunc
}

func NewHub(lookup ConversationLookup) *Hub {
	return &Hub{
		lookup: lookup,
		rooms:  make(map[string]map[string]*Session),
	}
}

// OnLeave registers a callback for room departures.
func (h *Hub) OnLeave(fn LeaveFunc) {
	h.leaveMu.Lock()
	h.onLeave = append(h.onLeave, fn)
	h.leaveMu.Unlock()
}

// Subscribe joins session to the conversation's room after checking the
// stored participants. Any previous room is left first.
func (h *Hub) Subscribe(ctx context.Context, session *Session, conversationID string) (*entity.Conversation, error) {
	conv, err := h.lookup.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(session.UserID) {
		logger.Warn("WebSocket: user %s tried to join conversation %s without being a participant", session.UserID, conversationID)
		return nil, errors.NotAParticipant(conversationID)
	}
	if session.closed() {
		return nil, errors.BadRequest("Session is closed", nil)
	}

	h.mu.Lock()
	previous := session.ConversationID()
	if previous == conversationID {
		h.mu.Unlock()
		return conv, nil
	}
	if previous != "" {
		h.removeLocked(session, previous)
	}
	room := h.rooms[conversationID]
	if room == nil {
		room = make(map[string]*Session)
		h.rooms[conversationID] = room
	}
	room[session.ID] = session
	session.setConversationID(conversationID)
	h.mu.Unlock()

	metrics.RoomSubscriptions.Inc()
	if previous != "" {
		h.notifyLeave(session, previous)
	}

	logger.Debug("WebSocket: session %s (user %s) joined conversation %s", session.ID, session.UserID, conversationID)
	return conv, nil
}

// Unsubscribe removes session from the room. It reports whether the session
// was subscribed there.
func (h *Hub) Unsubscribe(session *Session, conversationID string) bool {
	h.mu.Lock()
	if session.ConversationID() != conversationID {
		h.mu.Unlock()
		return false
	}
	h.removeLocked(session, conversationID)
	h.mu.Unlock()

	h.notifyLeave(session, conversationID)
	return true
}

// RemoveSession drops the session from whatever room it is in. Used on disconnect.
func (h *Hub) RemoveSession(session *Session) {
	if conversationID := session.ConversationID(); conversationID != "" {
		h.Unsubscribe(session, conversationID)
	}
}

func (h *Hub) removeLocked(session *Session, conversationID string) {
	if room := h.rooms[conversationID]; room != nil {
		if _, ok := room[session.ID]; ok {
			delete(room, session.ID)
			metrics.RoomSubscriptions.Dec()
		}
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
	session.setConversationID("")
}

func (h *Hub) notifyLeave(session *Session, conversationID string) {
	h.leaveMu.RLock()
	callbacks := append([]LeaveFunc(nil), h.onLeave...)
	h.leaveMu.RUnlock()

	for _, fn := range callbacks {
		fn(session, conversationID)
	}
}

// Broadcast delivers event to every session in the room, the sender's other
// tabs included. It returns how many sessions accepted the event.
func (h *Hub) Broadcast(conversationID string, event Event) int {
	return h.fanout(conversationID, event, func(*Session) bool { return true })
}

// BroadcastExceptUser delivers event to the room minus every session of userID.
func (h *Hub) BroadcastExceptUser(conversationID, userID string, event Event) int {
	return h.fanout(conversationID, event, func(s *Session) bool { return s.UserID != userID })
}

// SendToSession delivers event to a single session.
func (h *Hub) SendToSession(session *Session, event Event) bool {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("WebSocket: failed to marshal %s event: %v", event.Type, err)
		return false
	}
	return h.deliver(session, event.Type, payload)
}

func (h *Hub) fanout(conversationID string, event Event, include func(*Session) bool) int {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("WebSocket: failed to marshal %s event for conversation %s: %v", event.Type, conversationID, err)
		return 0
	}

	h.mu.RLock()
	targets := lo.Filter(lo.Values(h.rooms[conversationID]), func(s *Session, _ int) bool { return include(s) })
	h.mu.RUnlock()

	delivered := 0
	for _, session := range targets {
		if h.deliver(session, event.Type, payload) {
			delivered++
		}
	}
	return delivered
}

// deliver enqueues without blocking. A session whose buffer is full is closed:
// it has fallen behind and will replay state when it reconnects.
func (h *Hub) deliver(session *Session, eventType string, payload []byte) bool {
	if session.enqueue(payload) {
		return true
	}

	metrics.EventsDropped.WithLabelValues(eventType).Inc()
	if !session.closed() {
		logger.Warn("WebSocket: session %s (user %s) is too slow, dropping %s and closing", session.ID, session.UserID, eventType)
		session.Close()
	}
	return false
}

// RoomSize reports how many sessions are subscribed to the conversation.
func (h *Hub) RoomSize(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// UserInRoom reports whether any session of userID is subscribed to the conversation.
func (h *Hub) UserInRoom(conversationID, userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.SomeBy(lo.Values(h.rooms[conversationID]), func(s *Session) bool { return s.UserID == userID })
}
