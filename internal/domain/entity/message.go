package entity

import "time"

type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypePriceOffer  MessageType = "price_offer"
	MessageTypeNegotiation MessageType = "negotiation" // accept/reject record
)

type NegotiationAction string

const (
	ActionAccept NegotiationAction = "accept"
	ActionReject NegotiationAction = "reject"
)

func (a NegotiationAction) Valid() bool {
	return a == ActionAccept || a == ActionReject
}

type Message struct {
	ID             string            `json:"id" firestore:"id"`
	ConversationID string            `json:"conversation_id" firestore:"conversationId"`
	SenderID       string            `json:"sender_id" firestore:"senderId"`
	Text           string            `json:"text" firestore:"text"`
	Type           MessageType       `json:"message_type" firestore:"messageType"`
	PriceOffer     *float64          `json:"price_offer,omitempty" firestore:"priceOffer,omitempty"`
	Action         NegotiationAction `json:"action,omitempty" firestore:"action,omitempty"`
	Seq            int64             `json:"seq" firestore:"seq"`
	CreatedAt      time.Time         `json:"created_at" firestore:"createdAt"`
}

// Summary is the denormalized form cached on the conversation for list views.
func (m *Message) Summary() *MessageSummary {
	return &MessageSummary{
		Text:      m.Text,
		SenderID:  m.SenderID,
		CreatedAt: m.CreatedAt,
	}
}
