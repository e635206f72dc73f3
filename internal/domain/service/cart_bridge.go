//go:generate go run go.uber.org/mock/mockgen -source=cart_bridge.go -destination=../../mocks/mock_cart_bridge.go -package=mocks

package service

import (
	"context"

	"farmconnect/internal/domain/entity"
)

// AddItemRequest describes the cart line an agreed negotiation turns into.
// ConversationID is the idempotency key: one agreed deal, one cart line.
type AddItemRequest struct {
	ConversationID string
	BuyerID        string
	ProductID      string
	UnitPrice      float64
	Quantity       int
}

// CartBridge adds negotiated items to a buyer's cart. Implementations must
// tolerate the same request twice without creating a second line.
type CartBridge interface {
	AddItem(ctx context.Context, req AddItemRequest) (*entity.CartItem, error)
}
