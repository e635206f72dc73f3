package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"farmconnect/internal/adapter/api"
	"farmconnect/internal/adapter/api/middleware"
	"farmconnect/internal/domain/entity"
	"farmconnect/internal/infrastructure/metrics"
	"farmconnect/internal/infrastructure/ratelimit"
	ws "farmconnect/internal/infrastructure/websocket"
	"farmconnect/internal/usecase"
	"farmconnect/pkg/errors"
	"farmconnect/pkg/logger"
	"farmconnect/pkg/response"
)

const eventTimeout = 15 * time.Second

type WebSocketHandler struct {
	authenticator usecase.Authenticator
	registry      *ws.Registry
	hub           *ws.Hub
	chat          *usecase.ChatUseCase
	negotiation   *usecase.NegotiationUseCase
	presence      *usecase.PresenceUseCase
	rateLimiter   *ratelimit.RateLimiter
	validator     *api.Validator
	upgrader      gorillaws.Upgrader
}

func NewWebSocketHandler(
	authenticator usecase.Authenticator,
	registry *ws.Registry,
	hub *ws.Hub,
	chat *usecase.ChatUseCase,
	negotiation *usecase.NegotiationUseCase,
	presence *usecase.PresenceUseCase,
	rateLimiter *ratelimit.RateLimiter,
	allowedOrigins []string,
) *WebSocketHandler {
	return &WebSocketHandler{
		authenticator: authenticator,
		registry:      registry,
		hub:           hub,
		chat:          chat,
		negotiation:   negotiation,
		presence:      presence,
		rateLimiter:   rateLimiter,
		validator:     api.NewValidator(),
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker allows any origin when none are configured. Requests without
// an Origin header come from non-browser clients and are allowed.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return len(allowed) == 0 || origin == "" || lo.Contains(allowed, origin)
	}
}

// HandleWebSocket authenticates before upgrading, so an unauthenticated
// caller gets a 401 and never reaches a room.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	identity, err := h.authenticator.Authenticate(c.Request().Context(), middleware.BearerToken(c.Request()))
	if err != nil {
		metrics.RejectedConnections.WithLabelValues("unauthenticated").Inc()
		return response.Error(c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		metrics.RejectedConnections.WithLabelValues("upgrade_failed").Inc()
		logger.Warn("WebSocket: upgrade failed for user %s: %v", identity.UserID, err)
		return nil
	}

	session, err := h.registry.Register(conn, identity)
	if err != nil {
		metrics.RejectedConnections.WithLabelValues("unauthenticated").Inc()
		conn.Close()
		return nil
	}

	go session.WritePump()

	ctx := c.Request().Context()
	session.ReadPump(func(payload []byte) {
		h.dispatch(ctx, session, payload)
	})

	h.hub.RemoveSession(session)
	h.registry.Unregister(session)
	return nil
}

func (h *WebSocketHandler) dispatch(parent context.Context, session *ws.Session, payload []byte) {
	var in ws.InboundEvent
	if err := json.Unmarshal(payload, &in); err != nil {
		metrics.InboundEvents.WithLabelValues("malformed", errors.CodeBadRequest).Inc()
		h.sendError(session, "", "", errors.BadRequest("Malformed event", err))
		return
	}

	if in.Type != ws.EventPing {
		if allowed, wait := h.rateLimiter.Allow(session.UserID, in.Type); !allowed {
			metrics.InboundEvents.WithLabelValues(in.Type, errors.CodeTooManyRequests).Inc()
			logger.Debug("WebSocket: user %s rate limited on %s, retry in %v", session.UserID, in.Type, wait)
			h.sendError(session, in.RequestID, "", errors.TooManyRequests("Slow down, retry in "+wait.Round(time.Millisecond).String()))
			return
		}
	}

	ctx, cancel := context.WithTimeout(parent, eventTimeout)
	defer cancel()

	conversationID, err := h.handleEvent(ctx, session, in)
	if err != nil {
		appErr := errors.As(err)
		metrics.InboundEvents.WithLabelValues(in.Type, appErr.Code).Inc()
		if in.Type == ws.EventRetryCart && isCartError(appErr) {
			h.sendCartError(session, in.RequestID, conversationID, appErr)
			return
		}
		h.sendError(session, in.RequestID, conversationID, appErr)
		return
	}

	metrics.InboundEvents.WithLabelValues(in.Type, "ok").Inc()
	if in.RequestID != "" {
		h.reply(session, in.RequestID, ws.EventAck, nil)
	}
}

// handleEvent applies one inbound event. It returns the conversation the
// event targeted so errors can name it.
func (h *WebSocketHandler) handleEvent(ctx context.Context, session *ws.Session, in ws.InboundEvent) (string, error) {
	switch in.Type {
	case ws.EventPing:
		h.reply(session, in.RequestID, ws.EventPong, nil)
		return "", nil

	case ws.EventJoinConversation:
		var data ws.ConversationRef
		if err := h.decode(in, &data); err != nil {
			return "", err
		}
		_, err := h.chat.JoinConversation(ctx, session, data.ConversationID)
		return data.ConversationID, err

	case ws.EventLeaveConversation:
		var data ws.ConversationRef
		if err := h.decode(in, &data); err != nil {
			return "", err
		}
		return data.ConversationID, h.chat.LeaveConversation(session, data.ConversationID)

	case ws.EventSendMessage:
		var data ws.SendMessageData
		if err := h.decode(in, &data); err != nil {
			return "", err
		}
		_, err := h.chat.SendMessage(ctx, session.UserID, usecase.SendMessageInput{
			ConversationID: data.ConversationID,
			Text:           data.Text,
			MessageType:    entity.MessageType(data.MessageType),
			PriceOffer:     data.PriceOffer,
		})
		return data.ConversationID, err

	case ws.EventNegotiatePrice:
		var data ws.NegotiatePriceData
		if err := h.decode(in, &data); err != nil {
			return "", err
		}
		result, err := h.negotiation.Resolve(ctx, data.ConversationID, session.UserID, entity.NegotiationAction(data.Action))
		if err != nil {
			return data.ConversationID, err
		}
		h.reportCart(session, in.RequestID, data.ConversationID, result.CartItem, result.CartErr)
		return data.ConversationID, nil

	case ws.EventTyping:
		var data ws.ConversationRef
		if err := h.decode(in, &data); err != nil {
			return "", err
		}
		return data.ConversationID, h.presence.StartTyping(session, data.ConversationID)

	case ws.EventStopTyping:
		var data ws.ConversationRef
		if err := h.decode(in, &data); err != nil {
			return "", err
		}
		return data.ConversationID, h.presence.StopTypingFor(session, data.ConversationID)

	case ws.EventRetryCart:
		var data ws.ConversationRef
		if err := h.decode(in, &data); err != nil {
			return "", err
		}
		item, err := h.negotiation.RetryCart(ctx, data.ConversationID, session.UserID)
		if err != nil {
			return data.ConversationID, err
		}
		h.reportCart(session, in.RequestID, data.ConversationID, item, nil)
		return data.ConversationID, nil

	default:
		return "", errors.BadRequest("Unknown event type: "+in.Type, nil)
	}
}

func (h *WebSocketHandler) decode(in ws.InboundEvent, dst interface{}) error {
	if len(in.Data) == 0 {
		return errors.BadRequest("Event data is required", nil)
	}
	if err := json.Unmarshal(in.Data, dst); err != nil {
		return errors.BadRequest("Malformed event data", err)
	}
	if err := h.validator.Validate(dst); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			return errors.BadRequest(response.ValidationMessage(fieldErrs[0]), err)
		}
		return errors.BadRequest("Invalid event data", err)
	}
	return nil
}

// reportCart tells the acting session how the cart write went. Other
// participants learn about the deal through price_negotiation.
func (h *WebSocketHandler) reportCart(session *ws.Session, requestID, conversationID string, item *entity.CartItem, cartErr *errors.AppError) {
	if cartErr != nil {
		h.sendCartError(session, requestID, conversationID, cartErr)
		return
	}
	if item != nil {
		h.reply(session, requestID, ws.EventCartItemAdded, ws.CartItemAddedData{
			ConversationID: conversationID,
			Item:           item,
		})
	}
}

func (h *WebSocketHandler) sendCartError(session *ws.Session, requestID, conversationID string, appErr *errors.AppError) {
	h.reply(session, requestID, ws.EventCartError, ws.ErrorData{
		ConversationID: conversationID,
		Code:           appErr.Code,
		Message:        appErr.Message,
		Retryable:      appErr.Retryable(),
	})
}

func (h *WebSocketHandler) sendError(session *ws.Session, requestID, conversationID string, err error) {
	appErr := errors.As(err)
	if appErr.Code == errors.CodeInternal {
		logger.Error("WebSocket: internal error for user %s: %v", session.UserID, err)
	}
	h.reply(session, requestID, ws.EventError, ws.ErrorData{
		ConversationID: conversationID,
		Code:           appErr.Code,
		Message:        appErr.Message,
		Retryable:      appErr.Retryable(),
	})
}

func (h *WebSocketHandler) reply(session *ws.Session, requestID, eventType string, data interface{}) {
	event := ws.NewEvent(eventType, data)
	event.RequestID = requestID
	h.hub.SendToSession(session, event)
}

func isCartError(appErr *errors.AppError) bool {
	return appErr.Code == errors.CodeCartBridgeFailure
}
