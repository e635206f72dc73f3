package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"farmconnect/internal/domain/entity"
	"farmconnect/internal/domain/repository"
	"farmconnect/internal/domain/service"
	"farmconnect/internal/infrastructure/metrics"
	ws "farmconnect/internal/infrastructure/websocket"
	"farmconnect/pkg/errors"
	"farmconnect/pkg/logger"
)

const defaultCartWriteTimeout = 5 * time.Second

// NegotiationUseCase owns the deal state machine of a conversation:
//
//	none|rejected|pending --offer--> pending
//	pending --accept--> agreed (terminal)
//	pending --reject--> rejected
type NegotiationUseCase struct {
	conversationRepo repository.ConversationRepository
	cartBridge       service.CartBridge
	hub              RoomHub
	locks            *ConversationLocks
	cartTimeout      time.Duration
}

func NewNegotiationUseCase(
	conversationRepo repository.ConversationRepository,
	cartBridge service.CartBridge,
	hub RoomHub,
	locks *ConversationLocks,
	cartTimeout time.Duration,
) *NegotiationUseCase {
	if cartTimeout <= 0 {
		cartTimeout = defaultCartWriteTimeout
	}
	return &NegotiationUseCase{
		conversationRepo: conversationRepo,
		cartBridge:       cartBridge,
		hub:              hub,
		locks:            locks,
		cartTimeout:      cartTimeout,
	}
}

// ResolveResult is the outcome of an accept or reject. CartErr is set when
// the deal was agreed but the cart write failed; the agreement still stands.
type ResolveResult struct {
	Conversation *entity.Conversation
	Message      *entity.Message
	CartItem     *entity.CartItem
	CartErr      *errors.AppError
}

// SubmitOffer appends a price_offer message and makes it the pending offer,
// replacing any earlier one.
func (uc *NegotiationUseCase) SubmitOffer(ctx context.Context, conversationID, senderID string, amount float64, note string) (*entity.Message, error) {
	if err := validateAmount(amount); err != nil {
		metrics.NegotiationOutcomes.WithLabelValues("offer", err.Code).Inc()
		return nil, err
	}

	if note == "" {
		note = fmt.Sprintf("Offered %s", formatPrice(amount))
	}

	offered := amount
	message := &entity.Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		Text:       note,
		Type:       entity.MessageTypePriceOffer,
		PriceOffer: &offered,
	}

	unlock := uc.locks.Lock(conversationID)
	defer unlock()

	_, err := uc.conversationRepo.AppendMessage(ctx, conversationID, message, func(conv *entity.Conversation) error {
		if !conv.IsParticipant(senderID) {
			return errors.NotAParticipant(conversationID)
		}
		if conv.DealStatus == entity.DealAgreed {
			return errors.DealAlreadyAgreed()
		}
		conv.DealStatus = entity.DealPending
		conv.PendingOffer = &entity.PendingOffer{
			MessageID: message.ID,
			SenderID:  senderID,
			Amount:    amount,
		}
		conv.LastOfferSenderID = senderID
		return nil
	})
	if err != nil {
		metrics.NegotiationOutcomes.WithLabelValues("offer", errors.As(err).Code).Inc()
		logger.LogNegotiationError(conversationID, "offer", err)
		return nil, err
	}

	metrics.NegotiationOutcomes.WithLabelValues("offer", "ok").Inc()
	metrics.MessagesAppended.WithLabelValues(string(message.Type)).Inc()
	logger.Debug("SubmitOffer: user %s offered %s in conversation %s (seq %d)", senderID, formatPrice(amount), conversationID, message.Seq)

	uc.hub.Broadcast(conversationID, ws.NewEvent(ws.EventNewMessage, message))

	return message, nil
}

// Resolve accepts or rejects the pending offer. Only the counterpart of the
// latest offer's sender may resolve it. On accept the cart bridge is called exactly
// once, after the agreement is committed.
func (uc *NegotiationUseCase) Resolve(ctx context.Context, conversationID, actorID string, action entity.NegotiationAction) (*ResolveResult, error) {
	if !action.Valid() {
		return nil, errors.BadRequest("Action must be accept or reject", nil)
	}

	message := &entity.Message{
		ID:       uuid.New().String(),
		SenderID: actorID,
		Type:     entity.MessageTypeNegotiation,
		Action:   action,
	}

	unlock := uc.locks.Lock(conversationID)
	conv, err := uc.conversationRepo.AppendMessage(ctx, conversationID, message, func(conv *entity.Conversation) error {
		if !conv.IsParticipant(actorID) {
			return errors.NotAParticipant(conversationID)
		}
		// the author of the latest offer can never resolve it, even once it is settled
		if conv.LastOfferSenderID == actorID {
			return errors.SelfResolution()
		}
		if conv.DealStatus != entity.DealPending || conv.PendingOffer == nil {
			return errors.NoActiveOffer()
		}

		amount := conv.PendingOffer.Amount
		message.PriceOffer = &amount
		if action == entity.ActionAccept {
			message.Text = fmt.Sprintf("Accepted the offer of %s", formatPrice(amount))
			agreed := amount
			conv.DealStatus = entity.DealAgreed
			conv.AgreedPrice = &agreed
		} else {
			message.Text = fmt.Sprintf("Rejected the offer of %s", formatPrice(amount))
			conv.DealStatus = entity.DealRejected
		}
		conv.PendingOffer = nil
		return nil
	})
	if err != nil {
		unlock()
		metrics.NegotiationOutcomes.WithLabelValues(string(action), errors.As(err).Code).Inc()
		logger.LogNegotiationError(conversationID, string(action), err)
		return nil, err
	}

	uc.hub.Broadcast(conversationID, ws.NewEvent(ws.EventNewMessage, message))
	uc.hub.Broadcast(conversationID, ws.NewEvent(ws.EventPriceNegotiation, ws.PriceNegotiationData{
		ConversationID: conversationID,
		MessageID:      message.ID,
		ActorID:        actorID,
		Action:         action,
		PriceOffer:     *message.PriceOffer,
		DealStatus:     conv.DealStatus,
	}))
	unlock()

	metrics.NegotiationOutcomes.WithLabelValues(string(action), "ok").Inc()
	metrics.MessagesAppended.WithLabelValues(string(message.Type)).Inc()
	logger.Info("Resolve: user %s %sed %s in conversation %s", actorID, action, formatPrice(*message.PriceOffer), conversationID)

	result := &ResolveResult{Conversation: conv, Message: message}
	if action != entity.ActionAccept || conv.ProductID == "" {
		return result, nil
	}

	item, cartErr := uc.addToCart(ctx, conv)
	if cartErr != nil {
		result.CartErr = cartErr
		return result, nil
	}
	result.CartItem = item
	if updated := uc.recordCartItem(ctx, conversationID, item); updated != nil {
		result.Conversation = updated
	}
	return result, nil
}

// RetryCart re-invokes the cart bridge for an agreed deal whose cart write
// failed. Once the line is recorded on the conversation it is returned as is.
func (uc *NegotiationUseCase) RetryCart(ctx context.Context, conversationID, actorID string) (*entity.CartItem, error) {
	conv, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(actorID) {
		return nil, errors.NotAParticipant(conversationID)
	}
	if conv.DealStatus != entity.DealAgreed || conv.AgreedPrice == nil {
		return nil, errors.Conflict("Conversation has no agreed deal")
	}
	if conv.ProductID == "" {
		return nil, errors.BadRequest("Conversation is not about a product", nil)
	}

	if conv.CartItemID != "" {
		return &entity.CartItem{
			ID:             conv.CartItemID,
			BuyerID:        conv.BuyerID(),
			ProductID:      conv.ProductID,
			ConversationID: conv.ID,
			UnitPrice:      *conv.AgreedPrice,
			Quantity:       1,
			Source:         service.NegotiatedSource,
		}, nil
	}

	item, cartErr := uc.addToCart(ctx, conv)
	if cartErr != nil {
		return nil, cartErr
	}
	uc.recordCartItem(ctx, conversationID, item)
	return item, nil
}

func (uc *NegotiationUseCase) addToCart(ctx context.Context, conv *entity.Conversation) (*entity.CartItem, *errors.AppError) {
	cartCtx, cancel := context.WithTimeout(ctx, uc.cartTimeout)
	defer cancel()

	item, err := uc.cartBridge.AddItem(cartCtx, service.AddItemRequest{
		ConversationID: conv.ID,
		BuyerID:        conv.BuyerID(),
		ProductID:      conv.ProductID,
		UnitPrice:      *conv.AgreedPrice,
		Quantity:       1,
	})
	if err != nil {
		metrics.CartBridgeCalls.WithLabelValues("error").Inc()
		logger.Error("Cart bridge failed for conversation %s: %v", conv.ID, err)

		return nil, errors.CartBridgeFailure(err)
	}

	metrics.CartBridgeCalls.WithLabelValues("ok").Inc()
	return item, nil
}

// recordCartItem links the cart line to the conversation. A failure here is
// logged only; the line exists and a retry will find it.
func (uc *NegotiationUseCase) recordCartItem(ctx context.Context, conversationID string, item *entity.CartItem) *entity.Conversation {
	conv, err := uc.conversationRepo.Update(ctx, conversationID, func(conv *entity.Conversation) error {
		conv.CartItemID = item.ID
		return nil
	})
	if err != nil {
		logger.Warn("Failed to record cart item %s on conversation %s: %v", item.ID, conversationID, err)
		return nil
	}
	return conv
}

func validateAmount(amount float64) *errors.AppError {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return errors.InvalidAmount("Price offer must be a finite number")
	}
	if amount <= 0 {
		return errors.InvalidAmount("Price offer must be greater than zero")
	}
	return nil
}

func formatPrice(amount float64) string {
	return fmt.Sprintf("₹%.2f", amount)
}
