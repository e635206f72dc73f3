package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmconnect/internal/domain/entity"
	"farmconnect/pkg/errors"
	"farmconnect/pkg/response"
)

func TestChatHandler_RequiresAuthentication(t *testing.T) {
	app := newTestApp(t)

	status, env := app.request(t, http.MethodGet, "/v1/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, errors.CodeUnauthenticated, env.Error.Code)
}

func TestChatHandler_CreateConversationIsIdempotent(t *testing.T) {
	app := newTestApp(t)
	id := app.createConversation(t)

	status, env := app.request(t, http.MethodPost, "/v1/conversations", buyerToken, map[string]string{
		"recipient_id": "farmer-1",
		"product_id":   "prod-1",
	})
	assert.Equal(t, http.StatusOK, status)

	var conv entity.Conversation
	require.NoError(t, json.Unmarshal(env.Data, &conv))
	assert.Equal(t, id, conv.ID)

	status, env = app.request(t, http.MethodPost, "/v1/conversations", buyerToken, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestChatHandler_MessagesAndHistory(t *testing.T) {
	app := newTestApp(t)
	id := app.createConversation(t)

	for _, text := range []string{"hello", "are these organic?", "yes"} {
		status, _ := app.request(t, http.MethodPost, "/v1/conversations/"+id+"/messages", buyerToken, map[string]string{"text": text})
		require.Equal(t, http.StatusCreated, status)
	}

	status, env := app.request(t, http.MethodGet, "/v1/conversations/"+id+"/messages?limit=2", farmerToken, nil)
	require.Equal(t, http.StatusOK, status)

	var page response.ListResponse
	var messages []entity.Message
	page.Items = &messages
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.Count)
	require.Len(t, messages, 2)
	assert.Equal(t, "are these organic?", messages[0].Text)
	assert.Equal(t, int64(3), messages[1].Seq)

	status, env = app.request(t, http.MethodGet, "/v1/conversations/"+id+"/messages", strangerTok, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, errors.CodeNotAParticipant, env.Error.Code)

	status, env = app.request(t, http.MethodGet, "/v1/conversations/missing", buyerToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, errors.CodeNotFound, env.Error.Code)
}

func TestChatHandler_NegotiationWithPartialCartFailure(t *testing.T) {
	app := newTestApp(t)
	id := app.createConversation(t)
	app.cart.SetAvailable("prod-1", false)

	status, env := app.request(t, http.MethodPost, "/v1/conversations/"+id+"/messages", buyerToken, map[string]interface{}{
		"message_type": "price_offer",
		"price_offer":  0,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, errors.CodeInvalidAmount, env.Error.Code)

	status, _ = app.request(t, http.MethodPost, "/v1/conversations/"+id+"/messages", buyerToken, map[string]interface{}{
		"message_type": "price_offer",
		"price_offer":  450,
	})
	require.Equal(t, http.StatusCreated, status)

	status, env = app.request(t, http.MethodPost, "/v1/conversations/"+id+"/negotiation", buyerToken, map[string]string{"action": "accept"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, errors.CodeSelfResolution, env.Error.Code)

	status, env = app.request(t, http.MethodPost, "/v1/conversations/"+id+"/negotiation", farmerToken, map[string]string{"action": "accept"})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, errors.CodeCartBridgeFailure, env.Error.Code)
	assert.True(t, env.Error.Retryable)

	var result struct {
		Conversation entity.Conversation `json:"conversation"`
		CartItem     *entity.CartItem    `json:"cart_item"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, entity.DealAgreed, result.Conversation.DealStatus)
	require.NotNil(t, result.Conversation.AgreedPrice)
	assert.Equal(t, 450.0, *result.Conversation.AgreedPrice)
	assert.Nil(t, result.CartItem)

	app.cart.SetAvailable("prod-1", true)
	status, env = app.request(t, http.MethodPost, "/v1/conversations/"+id+"/cart/retry", farmerToken, nil)
	require.Equal(t, http.StatusOK, status)

	var item entity.CartItem
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, "buyer-1", item.BuyerID)
	assert.Equal(t, 450.0, item.UnitPrice)

	status, env = app.request(t, http.MethodGet, "/v1/conversations/"+id, buyerToken, nil)
	require.Equal(t, http.StatusOK, status)
	var conv entity.Conversation
	require.NoError(t, json.Unmarshal(env.Data, &conv))
	assert.Equal(t, item.ID, conv.CartItemID)
}
