package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmconnect/internal/domain/entity"
	"farmconnect/pkg/errors"
)

type stubLookup struct {
	conversations map[string]*entity.Conversation
}

func (s stubLookup) GetByID(_ context.Context, id string) (*entity.Conversation, error) {
	conv, ok := s.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return conv.Clone(), nil
}

func newStubLookup() stubLookup {
	return stubLookup{conversations: map[string]*entity.Conversation{
		"conv-1": entity.NewConversation("conv-1", "prod-1",
			entity.Participant{UserID: "buyer-1", Role: entity.RoleBuyer},
			entity.Participant{UserID: "farmer-1", Role: entity.RoleFarmer},
		),
		"conv-2": entity.NewConversation("conv-2", "prod-2",
			entity.Participant{UserID: "buyer-1", Role: entity.RoleBuyer},
			entity.Participant{UserID: "farmer-2", Role: entity.RoleFarmer},
		),
	}}
}

func newTestSession(t *testing.T, userID string, role entity.Role, buffer int) *Session {
	t.Helper()
	registry := NewRegistry(Options{SendBuffer: buffer})
	session, err := registry.Register(nil, entity.Identity{UserID: userID, Role: role})
	require.NoError(t, err)
	return session
}

// drain returns the event types queued for the session.
func drain(session *Session) []string {
	var types []string
	for {
		select {
		case payload := <-session.send:
			var event Event
			if err := json.Unmarshal(payload, &event); err == nil {
				types = append(types, event.Type)
			}
		default:
			return types
		}
	}
}

func TestHub_SubscribeRejectsNonParticipant(t *testing.T) {
	hub := NewHub(newStubLookup())
	stranger := newTestSession(t, "farmer-2", entity.RoleFarmer, 8)

	_, err := hub.Subscribe(context.Background(), stranger, "conv-1")
	assert.True(t, errors.Is(err, errors.CodeNotAParticipant))
	assert.Empty(t, stranger.ConversationID())
	assert.Zero(t, hub.RoomSize("conv-1"))
}

func TestHub_SubscribeUnknownConversation(t *testing.T) {
	hub := NewHub(newStubLookup())
	session := newTestSession(t, "buyer-1", entity.RoleBuyer, 8)

	_, err := hub.Subscribe(context.Background(), session, "missing")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestHub_BroadcastReachesEveryTabInRoomOnly(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(newStubLookup())

	buyerTab1 := newTestSession(t, "buyer-1", entity.RoleBuyer, 8)
	buyerTab2 := newTestSession(t, "buyer-1", entity.RoleBuyer, 8)
	farmer := newTestSession(t, "farmer-1", entity.RoleFarmer, 8)
	otherRoom := newTestSession(t, "farmer-2", entity.RoleFarmer, 8)

	for _, s := range []*Session{buyerTab1, buyerTab2, farmer} {
		_, err := hub.Subscribe(ctx, s, "conv-1")
		require.NoError(t, err)
	}
	_, err := hub.Subscribe(ctx, otherRoom, "conv-2")
	require.NoError(t, err)

	delivered := hub.Broadcast("conv-1", NewEvent(EventNewMessage, map[string]string{"text": "hi"}))
	assert.Equal(t, 3, delivered)

	assert.Equal(t, []string{EventNewMessage}, drain(buyerTab1))
	assert.Equal(t, []string{EventNewMessage}, drain(buyerTab2))
	assert.Equal(t, []string{EventNewMessage}, drain(farmer))
	assert.Empty(t, drain(otherRoom))
}

func TestHub_BroadcastExceptUserSkipsAllTabsOfUser(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(newStubLookup())

	buyerTab1 := newTestSession(t, "buyer-1", entity.RoleBuyer, 8)
	buyerTab2 := newTestSession(t, "buyer-1", entity.RoleBuyer, 8)
	farmer := newTestSession(t, "farmer-1", entity.RoleFarmer, 8)
	for _, s := range []*Session{buyerTab1, buyerTab2, farmer} {
		_, err := hub.Subscribe(ctx, s, "conv-1")
		require.NoError(t, err)
	}

	delivered := hub.BroadcastExceptUser("conv-1", "buyer-1", NewEvent(EventUserTyping, nil))
	assert.Equal(t, 1, delivered)
	assert.Empty(t, drain(buyerTab1))
	assert.Empty(t, drain(buyerTab2))
	assert.Equal(t, []string{EventUserTyping}, drain(farmer))
}

func TestHub_SubscribeSwitchesRoomsAndNotifiesLeave(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(newStubLookup())

	var (
		mu   sync.Mutex
		left []string
	)
	hub.OnLeave(func(session *Session, conversationID string) {
		mu.Lock()
		left = append(left, conversationID)
		mu.Unlock()
	})

	buyer := newTestSession(t, "buyer-1", entity.RoleBuyer, 8)
	_, err := hub.Subscribe(ctx, buyer, "conv-1")
	require.NoError(t, err)
	_, err = hub.Subscribe(ctx, buyer, "conv-2")
	require.NoError(t, err)

	assert.Equal(t, "conv-2", buyer.ConversationID())
	assert.Zero(t, hub.RoomSize("conv-1"))
	assert.Equal(t, 1, hub.RoomSize("conv-2"))
	assert.Equal(t, []string{"conv-1"}, left)

	assert.Zero(t, hub.Broadcast("conv-1", NewEvent(EventNewMessage, nil)))

	hub.RemoveSession(buyer)
	assert.Empty(t, buyer.ConversationID())
	assert.Equal(t, []string{"conv-1", "conv-2"}, left)
}

func TestHub_ResubscribeSameRoomIsNoop(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(newStubLookup())
	calls := 0
	hub.OnLeave(func(*Session, string) { calls++ })

	buyer := newTestSession(t, "buyer-1", entity.RoleBuyer, 8)
	_, err := hub.Subscribe(ctx, buyer, "conv-1")
	require.NoError(t, err)
	_, err = hub.Subscribe(ctx, buyer, "conv-1")
	require.NoError(t, err)

	assert.Equal(t, 1, hub.RoomSize("conv-1"))
	assert.Zero(t, calls)
}

func TestHub_UnsubscribeWrongRoom(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(newStubLookup())
	buyer := newTestSession(t, "buyer-1", entity.RoleBuyer, 8)
	_, err := hub.Subscribe(ctx, buyer, "conv-1")
	require.NoError(t, err)

	assert.False(t, hub.Unsubscribe(buyer, "conv-2"))
	assert.True(t, hub.Unsubscribe(buyer, "conv-1"))
	assert.False(t, hub.Unsubscribe(buyer, "conv-1"))
}

func TestHub_SlowSessionIsDroppedWithoutStallingRoom(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(newStubLookup())

	slow := newTestSession(t, "buyer-1", entity.RoleBuyer, 1)
	healthy := newTestSession(t, "farmer-1", entity.RoleFarmer, 8)
	for _, s := range []*Session{slow, healthy} {
		_, err := hub.Subscribe(ctx, s, "conv-1")
		require.NoError(t, err)
	}

	assert.Equal(t, 2, hub.Broadcast("conv-1", NewEvent(EventNewMessage, nil)))
	assert.Equal(t, 1, hub.Broadcast("conv-1", NewEvent(EventNewMessage, nil)))

	select {
	case <-slow.Done():
	default:
		t.Fatal("slow session should have been closed")
	}
	assert.Len(t, drain(healthy), 2)
	assert.False(t, hub.SendToSession(slow, NewEvent(EventPong, nil)))
}

func TestHub_UserInRoom(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(newStubLookup())

	tab1 := newTestSession(t, "buyer-1", entity.RoleBuyer, 8)
	tab2 := newTestSession(t, "buyer-1", entity.RoleBuyer, 8)
	for _, s := range []*Session{tab1, tab2} {
		_, err := hub.Subscribe(ctx, s, "conv-1")
		require.NoError(t, err)
	}

	hub.RemoveSession(tab1)
	assert.True(t, hub.UserInRoom("conv-1", "buyer-1"))
	hub.RemoveSession(tab2)
	assert.False(t, hub.UserInRoom("conv-1", "buyer-1"))
}
