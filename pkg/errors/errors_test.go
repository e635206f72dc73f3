package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAndAs(t *testing.T) {
	wrapped := fmt.Errorf("resolve: %w", NoActiveOffer())

	assert.True(t, Is(wrapped, CodeNoActiveOffer))
	assert.False(t, Is(wrapped, CodeSelfResolution))
	assert.False(t, Is(errors.New("plain"), CodeNoActiveOffer))

	appErr := As(wrapped)
	assert.Equal(t, CodeNoActiveOffer, appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.Status)

	unknown := As(errors.New("disk on fire"))
	assert.Equal(t, CodeInternal, unknown.Code)
	assert.Equal(t, http.StatusInternalServerError, unknown.Status)
	assert.EqualError(t, errors.Unwrap(unknown), "disk on fire")
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err       *AppError
		retryable bool
	}{
		{CartBridgeFailure(errors.New("timeout")), true},
		{TooManyRequests("slow down"), true},
		{Internal("boom", nil), true},
		{ProductUnavailable("prod-1"), false},
		{NotAParticipant("conv-1"), false},
		{InvalidAmount("amount must be positive"), false},
		{DealAlreadyAgreed(), false},
	}
	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.err.Retryable())
		})
	}
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: Conversation not found", NotFound("Conversation", nil).Error())
	assert.Equal(t, "CART_BRIDGE_FAILURE: deal agreed but the cart could not be updated: timeout",
		CartBridgeFailure(errors.New("timeout")).Error())
}
