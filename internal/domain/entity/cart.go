package entity

import "time"

// CartItem is a buyer's cart line created from an agreed negotiation.
type CartItem struct {
	ID             string    `json:"id" firestore:"id"`
	BuyerID        string    `json:"buyer_id" firestore:"buyerId"`
	ProductID      string    `json:"product_id" firestore:"productId"`
	ConversationID string    `json:"conversation_id" firestore:"conversationId"`
	UnitPrice      float64   `json:"unit_price" firestore:"unitPrice"`
	Quantity       int       `json:"quantity" firestore:"quantity"`
	Source         string    `json:"source" firestore:"source"`
	CreatedAt      time.Time `json:"created_at" firestore:"createdAt"`
}
