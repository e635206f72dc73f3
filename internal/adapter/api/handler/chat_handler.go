package handler

import (
	"github.com/labstack/echo/v4"

	"farmconnect/internal/adapter/api/middleware"
	"farmconnect/internal/domain/entity"
	"farmconnect/internal/usecase"
	"farmconnect/pkg/response"
	"farmconnect/pkg/utils"
)

type ChatHandler struct {
	chatUseCase        *usecase.ChatUseCase
	negotiationUseCase *usecase.NegotiationUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase, negotiationUseCase *usecase.NegotiationUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase:        chatUseCase,
		negotiationUseCase: negotiationUseCase,
	}
}

type createConversationRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	ProductID   string `json:"product_id"`
}

type sendMessageRequest struct {
	Text        string   `json:"text" validate:"max=4000"`
	MessageType string   `json:"message_type" validate:"omitempty,oneof=text price_offer"`
	PriceOffer  *float64 `json:"price_offer,omitempty"`
}

type negotiationRequest struct {
	Action string `json:"action" validate:"required,oneof=accept reject"`
}

type negotiationResponse struct {
	Conversation *entity.Conversation `json:"conversation"`
	Message      *entity.Message      `json:"message"`
	CartItem     *entity.CartItem     `json:"cart_item,omitempty"`
}

// CreateConversation opens a conversation with another user, or returns the
// existing one for the same pair and product.
func (h *ChatHandler) CreateConversation(c echo.Context) error {
	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	conv, created, err := h.chatUseCase.CreateConversation(c.Request().Context(), middleware.IdentityFrom(c), usecase.CreateConversationInput{
		RecipientID: req.RecipientID,
		ProductID:   req.ProductID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	if created {
		return response.Created(c, conv)
	}
	return response.Success(c, conv)
}

func (h *ChatHandler) ListConversations(c echo.Context) error {
	identity := middleware.IdentityFrom(c)
	params := utils.GetHistoryParams(c)

	convs, err := h.chatUseCase.ListConversations(c.Request().Context(), identity.UserID, params.Limit)
	if err != nil {
		return response.Error(c, err)
	}
	return response.List(c, convs, len(convs))
}

func (h *ChatHandler) GetConversation(c echo.Context) error {
	identity := middleware.IdentityFrom(c)

	conv, err := h.chatUseCase.GetConversation(c.Request().Context(), identity.UserID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, conv)
}

// GetMessages pages history with ?limit= and ?before=<seq>, oldest first.
func (h *ChatHandler) GetMessages(c echo.Context) error {
	identity := middleware.IdentityFrom(c)
	params := utils.GetHistoryParams(c)

	messages, err := h.chatUseCase.GetMessages(c.Request().Context(), identity.UserID, c.Param("id"), params.BeforeSeq, params.Limit)
	if err != nil {
		return response.Error(c, err)
	}
	return response.List(c, messages, len(messages))
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	identity := middleware.IdentityFrom(c)
	message, err := h.chatUseCase.SendMessage(c.Request().Context(), identity.UserID, usecase.SendMessageInput{
		ConversationID: c.Param("id"),
		Text:           req.Text,
		MessageType:    entity.MessageType(req.MessageType),
		PriceOffer:     req.PriceOffer,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, message)
}

// Negotiate accepts or rejects the pending offer. An accepted deal whose cart
// write failed is still a success, reported with a retryable error alongside.
func (h *ChatHandler) Negotiate(c echo.Context) error {
	var req negotiationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	identity := middleware.IdentityFrom(c)
	result, err := h.negotiationUseCase.Resolve(c.Request().Context(), c.Param("id"), identity.UserID, entity.NegotiationAction(req.Action))
	if err != nil {
		return response.Error(c, err)
	}

	data := negotiationResponse{
		Conversation: result.Conversation,
		Message:      result.Message,
		CartItem:     result.CartItem,
	}
	if result.CartErr != nil {
		return response.Partial(c, data, result.CartErr)
	}
	return response.Success(c, data)
}

func (h *ChatHandler) RetryCart(c echo.Context) error {
	identity := middleware.IdentityFrom(c)

	item, err := h.negotiationUseCase.RetryCart(c.Request().Context(), c.Param("id"), identity.UserID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, item)
}
