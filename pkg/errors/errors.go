package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound           = "NOT_FOUND"
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeNotAParticipant    = "NOT_A_PARTICIPANT"
	CodeInvalidAmount      = "INVALID_AMOUNT"
	CodeSelfResolution     = "SELF_RESOLUTION"
	CodeNoActiveOffer      = "NO_ACTIVE_OFFER"
	CodeDealAlreadyAgreed  = "DEAL_ALREADY_AGREED"
	CodeCartBridgeFailure  = "CART_BRIDGE_FAILURE"
	CodeProductUnavailable = "PRODUCT_UNAVAILABLE"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the client may repeat the same request unchanged.
func (e *AppError) Retryable() bool {
	switch e.Code {
	case CodeCartBridgeFailure, CodeTooManyRequests, CodeInternal:
		return true
	}
	return false
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, err)
}

func BadRequest(message string, err error) *AppError {
	return New(CodeBadRequest, message, http.StatusBadRequest, err)
}

func Unauthenticated(message string, err error) *AppError {
	return New(CodeUnauthenticated, message, http.StatusUnauthorized, err)
}

func Forbidden(message string, err error) *AppError {
	return New(CodeForbidden, message, http.StatusForbidden, err)
}

func Conflict(message string) *AppError {
	return New(CodeConflict, message, http.StatusConflict, nil)
}

func Internal(message string, err error) *AppError {
	return New(CodeInternal, message, http.StatusInternalServerError, err)
}

func TooManyRequests(message string) *AppError {
	return New(CodeTooManyRequests, message, http.StatusTooManyRequests, nil)
}

func NotAParticipant(conversationID string) *AppError {
	return New(CodeNotAParticipant, fmt.Sprintf("not a participant of conversation %s", conversationID), http.StatusForbidden, nil)
}

func InvalidAmount(message string) *AppError {
	return New(CodeInvalidAmount, message, http.StatusBadRequest, nil)
}

func SelfResolution() *AppError {
	return New(CodeSelfResolution, "cannot accept or reject your own offer", http.StatusConflict, nil)
}

func NoActiveOffer() *AppError {
	return New(CodeNoActiveOffer, "there is no pending offer to resolve", http.StatusConflict, nil)
}

func DealAlreadyAgreed() *AppError {
	return New(CodeDealAlreadyAgreed, "a deal has already been agreed in this conversation", http.StatusConflict, nil)
}

// CartBridgeFailure covers every failed cart write after an agreement, including
// an unavailable product. The cause stays reachable through Unwrap.
func CartBridgeFailure(err error) *AppError {
	message := "deal agreed but the cart could not be updated"
	var cause *AppError
	if errors.As(err, &cause) {
		message += ": " + cause.Message
	}
	return New(CodeCartBridgeFailure, message, http.StatusBadGateway, err)
}

func ProductUnavailable(productID string) *AppError {
	return New(CodeProductUnavailable, fmt.Sprintf("product %s is no longer available", productID), http.StatusConflict, nil)
}

// Is reports whether err is, or wraps, an AppError with the given code.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// As extracts the AppError from err, wrapping unknown errors as internal.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}
