package websocket

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"farmconnect/internal/domain/entity"
	"farmconnect/internal/infrastructure/metrics"
	"farmconnect/pkg/errors"
	"farmconnect/pkg/logger"
)

// Registry tracks live sessions by id and by user.
type Registry struct {
	opts Options

	mu       sync.RWMutex
	sessions map[string]*Session
	byUser   map[string]map[string]*Session
}

func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:     opts.withDefaults(),
		sessions: make(map[string]*Session),
		byUser:   make(map[string]map[string]*Session),
	}
}

// Register creates a session for an authenticated identity. It fails with
// Unauthenticated when the identity is incomplete, before any room can be joined.
func (r *Registry) Register(conn *websocket.Conn, identity entity.Identity) (*Session, error) {
	if !identity.Valid() {
		return nil, errors.Unauthenticated("A valid identity with a buyer or farmer role is required", nil)
	}

	session := newSession(conn, identity, r.opts)

	r.mu.Lock()
	r.sessions[session.ID] = session
	if r.byUser[identity.UserID] == nil {
		r.byUser[identity.UserID] = make(map[string]*Session)
	}
	r.byUser[identity.UserID][session.ID] = session
	r.mu.Unlock()

	metrics.ActiveSessions.Inc()
	logger.Info("WebSocket: session %s registered for user %s (%s)", session.ID, identity.UserID, identity.Role)
	return session, nil
}

// Unregister forgets the session and closes it. Safe to call twice.
func (r *Registry) Unregister(session *Session) {
	r.mu.Lock()
	_, ok := r.sessions[session.ID]
	if ok {
		delete(r.sessions, session.ID)
		if userSessions := r.byUser[session.UserID]; userSessions != nil {
			delete(userSessions, session.ID)
			if len(userSessions) == 0 {
				delete(r.byUser, session.UserID)
			}
		}
	}
	r.mu.Unlock()

	session.Close()
	if ok {
		metrics.ActiveSessions.Dec()
		logger.Info("WebSocket: session %s unregistered for user %s", session.ID, session.UserID)
	}
}

func (r *Registry) Get(sessionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[sessionID]
	return session, ok
}

func (r *Registry) SessionsForUser(userID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.byUser[userID])
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
