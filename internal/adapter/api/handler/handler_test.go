package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"farmconnect/internal/adapter/api"
	"farmconnect/internal/adapter/api/middleware"
	adapterrepo "farmconnect/internal/adapter/repository"
	"farmconnect/internal/domain/entity"
	"farmconnect/internal/domain/repository"
	"farmconnect/internal/domain/service"
	"farmconnect/internal/infrastructure/firebase"
	"farmconnect/internal/infrastructure/ratelimit"
	ws "farmconnect/internal/infrastructure/websocket"
	"farmconnect/internal/usecase"
)

var (
	buyerToken   = firebase.DevToken("buyer-1", entity.RoleBuyer)
	farmerToken  = firebase.DevToken("farmer-1", entity.RoleFarmer)
	strangerTok  = firebase.DevToken("farmer-2", entity.RoleFarmer)
	readDeadline = 2 * time.Second
)

type testApp struct {
	echo     *echo.Echo
	server   *httptest.Server
	repo     repository.ConversationRepository
	cart     *service.MemoryCartBridge
	registry *ws.Registry
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	repo := adapterrepo.NewMemoryConversationRepository()
	cart := service.NewMemoryCartBridge()
	registry := ws.NewRegistry(ws.Options{SendBuffer: 64})
	hub := ws.NewHub(repo)
	locks := usecase.NewConversationLocks()

	presence := usecase.NewPresenceUseCase(hub, time.Minute)
	hub.OnLeave(presence.HandleLeave)
	negotiation := usecase.NewNegotiationUseCase(repo, cart, hub, locks, time.Second)
	chat := usecase.NewChatUseCase(repo, negotiation, hub, presence, locks, 50)

	authenticator := firebase.NewDevAuthenticator()

	e := echo.New()
	e.Validator = api.NewValidator()

	wsHandler := NewWebSocketHandler(authenticator, registry, hub, chat, negotiation, presence, ratelimit.NewRateLimiter(nil), nil)
	chatHandler := NewChatHandler(chat, negotiation)
	authMiddleware := middleware.NewAuthMiddleware(authenticator)

	e.GET("/ws", wsHandler.HandleWebSocket)
	e.GET("/health", NewHealthHandler(registry).CheckHealth)

	conversations := e.Group("/v1/conversations", authMiddleware.Authenticate)
	conversations.POST("", chatHandler.CreateConversation)
	conversations.GET("", chatHandler.ListConversations)
	conversations.GET("/:id", chatHandler.GetConversation)
	conversations.GET("/:id/messages", chatHandler.GetMessages)
	conversations.POST("/:id/messages", chatHandler.SendMessage)
	conversations.POST("/:id/negotiation", chatHandler.Negotiate)
	conversations.POST("/:id/cart/retry", chatHandler.RetryCart)

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	return &testApp{echo: e, server: server, repo: repo, cart: cart, registry: registry}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable"`
	} `json:"error"`
}

func (a *testApp) request(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (a *testApp) createConversation(t *testing.T) string {
	t.Helper()
	status, env := a.request(t, http.MethodPost, "/v1/conversations", buyerToken, map[string]string{
		"recipient_id": "farmer-1",
		"product_id":   "prod-1",
	})
	require.Equal(t, http.StatusCreated, status)

	var conv entity.Conversation
	require.NoError(t, json.Unmarshal(env.Data, &conv))
	return conv.ID
}

type inbound struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

func (a *testApp) dial(t *testing.T, token string) *gorillaws.Conn {
	t.Helper()
	conn, resp, err := gorillaws.DefaultDialer.Dial(a.wsURL(token), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (a *testApp) wsURL(token string) string {
	u := "ws" + strings.TrimPrefix(a.server.URL, "http") + "/ws"
	if token != "" {
		u += "?token=" + url.QueryEscape(token)
	}
	return u
}

func send(t *testing.T, conn *gorillaws.Conn, eventType, requestID string, data interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":       eventType,
		"request_id": requestID,
		"data":       data,
	}))
}

// readUntil skips events until one of eventType arrives.
func readUntil(t *testing.T, conn *gorillaws.Conn, eventType string) inbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readDeadline)))
	for {
		var event inbound
		require.NoError(t, conn.ReadJSON(&event), "waiting for %s", eventType)
		if event.Type == eventType {
			return event
		}
	}
}

func decode(t *testing.T, raw json.RawMessage, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, dst))
}

func join(t *testing.T, conn *gorillaws.Conn, conversationID string) ws.ConversationStateData {
	t.Helper()
	send(t, conn, ws.EventJoinConversation, "join-"+conversationID, ws.ConversationRef{ConversationID: conversationID})

	var state ws.ConversationStateData
	decode(t, readUntil(t, conn, ws.EventConversationState).Data, &state)
	readUntil(t, conn, ws.EventAck)
	return state
}
