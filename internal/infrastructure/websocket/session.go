package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"farmconnect/internal/domain/entity"
	"farmconnect/pkg/logger"
)

// Session is one live connection of an authenticated user. A user may hold
// several sessions at once (one per tab or device).
type Session struct {
	ID     string
	UserID string
	Role   entity.Role

	conn *websocket.Conn
	opts Options

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu             sync.Mutex
	conversationID string
}

func newSession(conn *websocket.Conn, identity entity.Identity, opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		ID:     uuid.New().String(),
		UserID: identity.UserID,
		Role:   identity.Role,
		conn:   conn,
		opts:   opts,
		send:   make(chan []byte, opts.SendBuffer),
		done:   make(chan struct{}),
	}
}

func (s *Session) Identity() entity.Identity {
	return entity.Identity{UserID: s.UserID, Role: s.Role}
}

// ConversationID is the room the session is subscribed to, or "".
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

func (s *Session) setConversationID(id string) {
	s.mu.Lock()
	s.conversationID = id
	s.mu.Unlock()
}

// Done is closed once the session has been closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close stops the session. The write pump sends a close frame and releases
// the socket; the read pump then fails and runs the disconnect cleanup.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// enqueue never blocks. It reports false when the session is closed or its
// buffer is full.
func (s *Session) enqueue(payload []byte) bool {
	if s.closed() {
		return false
	}
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// ReadPump reads frames until the socket fails or the session closes,
// handing each payload to onMessage in arrival order.
func (s *Session) ReadPump(onMessage func(payload []byte)) {
	defer s.Close()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket: read error for session %s (user %s): %v", s.ID, s.UserID, err)
			}
			return
		}
		onMessage(message)
	}
}

// WritePump drains the send buffer to the socket and keeps the peer alive
// with pings.
func (s *Session) WritePump() {
	ticker := time.NewTicker(s.opts.pingPeriod())
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("WebSocket: write failed for session %s: %v", s.ID, err)
				s.Close()
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}

		case <-s.done:
			s.flush()
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever is already buffered, such as the error explaining
// why the session is being closed.
func (s *Session) flush() {
	for {
		select {
		case message := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}
