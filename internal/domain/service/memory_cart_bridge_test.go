package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmconnect/pkg/errors"
)

func TestMemoryCartBridge_OneLinePerConversation(t *testing.T) {
	bridge := NewMemoryCartBridge()
	req := AddItemRequest{ConversationID: "conv-1", BuyerID: "buyer-1", ProductID: "prod-1", UnitPrice: 500}

	first, err := bridge.AddItem(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Quantity)
	assert.Equal(t, NegotiatedSource, first.Source)
	assert.Equal(t, 500.0, first.UnitPrice)

	req.UnitPrice = 999
	again, err := bridge.AddItem(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 500.0, again.UnitPrice)

	assert.Len(t, bridge.Items(), 1)
}

func TestMemoryCartBridge_UnavailableProduct(t *testing.T) {
	bridge := NewMemoryCartBridge()
	bridge.SetAvailable("prod-1", false)

	_, err := bridge.AddItem(context.Background(), AddItemRequest{ConversationID: "conv-1", BuyerID: "buyer-1", ProductID: "prod-1", UnitPrice: 10, Quantity: 1})
	assert.True(t, errors.Is(err, errors.CodeProductUnavailable))
	assert.Empty(t, bridge.Items())

	bridge.SetAvailable("prod-1", true)
	_, err = bridge.AddItem(context.Background(), AddItemRequest{ConversationID: "conv-1", BuyerID: "buyer-1", ProductID: "prod-1", UnitPrice: 10, Quantity: 1})
	require.NoError(t, err)
}
