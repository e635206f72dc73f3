package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	adapterrepo "farmconnect/internal/adapter/repository"
	"farmconnect/internal/domain/entity"
	"farmconnect/internal/domain/repository"
	ws "farmconnect/internal/infrastructure/websocket"
	"farmconnect/internal/mocks"
)

// recordingHub is a real hub that also remembers every event it was asked
// to deliver, in order.
type recordingHub struct {
	*ws.Hub

	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	conversationID string
	exceptUser     string
	event          ws.Event
}

func newRecordingHub(lookup ws.ConversationLookup) *recordingHub {
	return &recordingHub{Hub: ws.NewHub(lookup)}
}

func (h *recordingHub) Broadcast(conversationID string, event ws.Event) int {
	h.record(recordedEvent{conversationID: conversationID, event: event})
	return h.Hub.Broadcast(conversationID, event)
}

func (h *recordingHub) BroadcastExceptUser(conversationID, userID string, event ws.Event) int {
	h.record(recordedEvent{conversationID: conversationID, exceptUser: userID, event: event})
	return h.Hub.BroadcastExceptUser(conversationID, userID, event)
}

func (h *recordingHub) SendToSession(session *ws.Session, event ws.Event) bool {
	h.record(recordedEvent{conversationID: session.ConversationID(), event: event})
	return h.Hub.SendToSession(session, event)
}

func (h *recordingHub) record(e recordedEvent) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
}

func (h *recordingHub) eventTypes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	types := make([]string, len(h.events))
	for i, e := range h.events {
		types[i] = e.event.Type
	}
	return types
}

func (h *recordingHub) eventsOfType(eventType string) []recordedEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []recordedEvent
	for _, e := range h.events {
		if e.event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	ctx         context.Context
	repo        repository.ConversationRepository
	hub         *recordingHub
	cart        *mocks.MockCartBridge
	registry    *ws.Registry
	presence    *PresenceUseCase
	negotiation *NegotiationUseCase
	chat        *ChatUseCase
}

const (
	buyerID  = "buyer-1"
	farmerID = "farmer-1"
	convID   = "conv-1"
	product  = "prod-1"
)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := adapterrepo.NewMemoryConversationRepository()
	hub := newRecordingHub(repo)
	cart := mocks.NewMockCartBridge(ctrl)
	locks := NewConversationLocks()

	presence := NewPresenceUseCase(hub, time.Minute)
	hub.OnLeave(presence.HandleLeave)
	negotiation := NewNegotiationUseCase(repo, cart, hub, locks, time.Second)
	chat := NewChatUseCase(repo, negotiation, hub, presence, locks, 50)

	f := &fixture{
		ctx:         context.Background(),
		repo:        repo,
		hub:         hub,
		cart:        cart,
		registry:    ws.NewRegistry(ws.Options{SendBuffer: 256}),
		presence:    presence,
		negotiation: negotiation,
		chat:        chat,
	}
	f.createConversation(t, convID, product)
	return f
}

func (f *fixture) createConversation(t *testing.T, id, productID string) {
	t.Helper()
	conv := entity.NewConversation(id, productID,
		entity.Participant{UserID: buyerID, Role: entity.RoleBuyer},
		entity.Participant{UserID: farmerID, Role: entity.RoleFarmer},
	)
	require.NoError(t, f.repo.Create(f.ctx, conv))
}

func (f *fixture) conversation(t *testing.T, id string) *entity.Conversation {
	t.Helper()
	conv, err := f.repo.GetByID(f.ctx, id)
	require.NoError(t, err)
	require.True(t, conv.ConsistentDeal(), "deal fields out of sync: %+v", conv)
	return conv
}

func (f *fixture) session(t *testing.T, userID string, role entity.Role) *ws.Session {
	t.Helper()
	session, err := f.registry.Register(nil, entity.Identity{UserID: userID, Role: role})
	require.NoError(t, err)
	return session
}

func (f *fixture) joined(t *testing.T, userID string, role entity.Role, conversationID string) *ws.Session {
	t.Helper()
	session := f.session(t, userID, role)
	_, err := f.chat.JoinConversation(f.ctx, session, conversationID)
	require.NoError(t, err)
	return session
}

func price(v float64) *float64 {
	return &v
}
