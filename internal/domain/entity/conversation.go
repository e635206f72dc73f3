package entity

import (
	"time"

	"github.com/samber/lo"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleFarmer Role = "farmer"
)

func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleFarmer
}

// Counterpart is the role on the other side of a buyer/farmer conversation.
func (r Role) Counterpart() Role {
	if r == RoleBuyer {
		return RoleFarmer
	}
	return RoleBuyer
}

type DealStatus string

const (
	DealNone     DealStatus = "none"
	DealPending  DealStatus = "pending"
	DealAgreed   DealStatus = "agreed"
	DealRejected DealStatus = "rejected"
)

type Participant struct {
	UserID string `json:"user_id" firestore:"userId"`
	Role   Role   `json:"role" firestore:"role"`
}

// PendingOffer points at the price_offer message currently awaiting resolution.
type PendingOffer struct {
	MessageID string  `json:"message_id" firestore:"messageId"`
	SenderID  string  `json:"sender_id" firestore:"senderId"`
	Amount    float64 `json:"amount" firestore:"amount"`
}

type MessageSummary struct {
	Text      string    `json:"text" firestore:"text"`
	SenderID  string    `json:"sender_id" firestore:"senderId"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}

type Conversation struct {
	ID           string        `json:"id" firestore:"id"`
	Participants []Participant `json:"participants" firestore:"participants"`
	// ParticipantIDs mirrors Participants for array-contains queries.
	ParticipantIDs []string `json:"-" firestore:"participantIds"`
	ProductID      string   `json:"product_id,omitempty" firestore:"productId,omitempty"`

	DealStatus   DealStatus    `json:"deal_status" firestore:"dealStatus"`
	AgreedPrice  *float64      `json:"agreed_price,omitempty" firestore:"agreedPrice"`
	PendingOffer *PendingOffer `json:"pending_offer,omitempty" firestore:"pendingOffer"`
	// LastOfferSenderID is the author of the most recent price offer. It
	// outlives PendingOffer so the author can never resolve their own offer.
	LastOfferSenderID string `json:"last_offer_sender_id,omitempty" firestore:"lastOfferSenderId,omitempty"`
	CartItemID        string `json:"cart_item_id,omitempty" firestore:"cartItemId,omitempty"`

	MessageSeq         int64           `json:"message_seq" firestore:"messageSeq"`
	LastMessageAt      time.Time       `json:"last_message_at" firestore:"lastMessageAt"`
	LastMessageSummary *MessageSummary `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

func NewConversation(id, productID string, participants ...Participant) *Conversation {
	return &Conversation{
		ID:             id,
		Participants:   participants,
		ParticipantIDs: lo.Map(participants, func(p Participant, _ int) string { return p.UserID }),
		ProductID:      productID,
		DealStatus:     DealNone,
	}
}

func (c *Conversation) IsParticipant(userID string) bool {
	return userID != "" && lo.ContainsBy(c.Participants, func(p Participant) bool {
		return p.UserID == userID
	})
}

// ParticipantWithRole returns the participant holding role, if any.
func (c *Conversation) ParticipantWithRole(role Role) (Participant, bool) {
	return lo.Find(c.Participants, func(p Participant) bool {
		return p.Role == role
	})
}

func (c *Conversation) BuyerID() string {
	buyer, _ := c.ParticipantWithRole(RoleBuyer)
	return buyer.UserID
}

// ConsistentDeal reports whether the deal fields agree with DealStatus:
// AgreedPrice iff agreed, PendingOffer iff pending.
func (c *Conversation) ConsistentDeal() bool {
	if (c.AgreedPrice != nil) != (c.DealStatus == DealAgreed) {
		return false
	}
	return (c.PendingOffer != nil) == (c.DealStatus == DealPending)
}

func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Participants = append([]Participant(nil), c.Participants...)
	out.ParticipantIDs = append([]string(nil), c.ParticipantIDs...)
	if c.AgreedPrice != nil {
		price := *c.AgreedPrice
		out.AgreedPrice = &price
	}
	if c.PendingOffer != nil {
		offer := *c.PendingOffer
		out.PendingOffer = &offer
	}
	if c.LastMessageSummary != nil {
		summary := *c.LastMessageSummary
		out.LastMessageSummary = &summary
	}
	return &out
}
