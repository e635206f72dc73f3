package service

import (
	"context"
	"sync"
	"time"

	"farmconnect/internal/domain/entity"
	"farmconnect/pkg/errors"
)

// MemoryCartBridge keeps cart lines in memory for the memory store backend.
// Products marked unavailable are rejected.
type MemoryCartBridge struct {
	mu          sync.Mutex
	items       map[string]*entity.CartItem
	unavailable map[string]bool
}

func NewMemoryCartBridge() *MemoryCartBridge {
	return &MemoryCartBridge{
		items:       make(map[string]*entity.CartItem),
		unavailable: make(map[string]bool),
	}
}

func (b *MemoryCartBridge) AddItem(ctx context.Context, req AddItemRequest) (*entity.CartItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if item, ok := b.items[req.ConversationID]; ok {
		copied := *item
		return &copied, nil
	}
	if b.unavailable[req.ProductID] {
		return nil, errors.ProductUnavailable(req.ProductID)
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	item := &entity.CartItem{
		ID:             req.ConversationID,
		BuyerID:        req.BuyerID,
		ProductID:      req.ProductID,
		ConversationID: req.ConversationID,
		UnitPrice:      req.UnitPrice,
		Quantity:       req.Quantity,
		Source:         NegotiatedSource,
		CreatedAt:      time.Now().UTC(),
	}
	b.items[req.ConversationID] = item

	copied := *item
	return &copied, nil
}

// SetAvailable toggles whether productID can be added to carts.
func (b *MemoryCartBridge) SetAvailable(productID string, available bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unavailable[productID] = !available
}

// Items returns every cart line written so far.
func (b *MemoryCartBridge) Items() []entity.CartItem {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]entity.CartItem, 0, len(b.items))
	for _, item := range b.items {
		out = append(out, *item)
	}
	return out
}
