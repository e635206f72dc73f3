package websocket

import (
	"encoding/json"
	"time"

	"farmconnect/internal/domain/entity"
)

// Inbound event types (client -> server)
const (
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventSendMessage       = "send_message"
	EventNegotiatePrice    = "negotiate_price"
	EventTyping            = "typing"
	EventStopTyping        = "stopTyping"
	EventRetryCart         = "retry_cart"
	EventPing              = "ping"
)

// Outbound event types (server -> client)
const (
	EventNewMessage        = "new_message"
	EventPriceNegotiation  = "price_negotiation"
	EventUserTyping        = "userTyping"
	EventUserStoppedTyping = "userStoppedTyping"
	EventConversationState = "conversation_state"
	EventCartItemAdded     = "cart_item_added"
	EventCartError         = "cart_error"
	EventAck               = "ack"
	EventError             = "error"
	EventPong              = "pong"
)

// Event is the envelope written to clients.
type Event struct {
	Type      string      `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

func NewEvent(eventType string, data interface{}) Event {
	return Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// InboundEvent is the envelope read from clients; Data is decoded per Type.
type InboundEvent struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type ConversationRef struct {
	ConversationID string `json:"conversation_id" validate:"required"`
}

type SendMessageData struct {
	ConversationID string   `json:"conversation_id" validate:"required"`
	Text           string   `json:"text" validate:"max=4000"`
	MessageType    string   `json:"message_type" validate:"omitempty,oneof=text price_offer"`
	PriceOffer     *float64 `json:"price_offer,omitempty"`
}

type NegotiatePriceData struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	Action         string `json:"action" validate:"required,oneof=accept reject"`
}

type PriceNegotiationData struct {
	ConversationID string                   `json:"conversation_id"`
	MessageID      string                   `json:"message_id"`
	ActorID        string                   `json:"actor_id"`
	Action         entity.NegotiationAction `json:"action"`
	PriceOffer     float64                  `json:"price_offer"`
	DealStatus     entity.DealStatus        `json:"deal_status"`
}

type TypingData struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

type ConversationStateData struct {
	Conversation *entity.Conversation `json:"conversation"`
	Messages     []*entity.Message    `json:"messages"`
}

type CartItemAddedData struct {
	ConversationID string           `json:"conversation_id"`
	Item           *entity.CartItem `json:"item"`
}

type ErrorData struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Code           string `json:"code"`
	Message        string `json:"message"`
	Retryable      bool   `json:"retryable"`
}
