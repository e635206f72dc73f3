package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"farmconnect/internal/domain/entity"
	"farmconnect/internal/domain/repository"
	"farmconnect/internal/infrastructure/metrics"
	ws "farmconnect/internal/infrastructure/websocket"
	"farmconnect/pkg/errors"
	"farmconnect/pkg/logger"
)

const (
	defaultHistoryOnJoin   = 50
	defaultConversationCap = 50
	maxMessageLength       = 4000
)

type ChatUseCase struct {
	conversationRepo repository.ConversationRepository
	negotiation      *NegotiationUseCase
	hub              RoomHub
	typing           TypingStopper
	locks            *ConversationLocks
	historyOnJoin    int
}

func NewChatUseCase(
	conversationRepo repository.ConversationRepository,
	negotiation *NegotiationUseCase,
	hub RoomHub,
	typing TypingStopper,
	locks *ConversationLocks,
	historyOnJoin int,
) *ChatUseCase {
	if historyOnJoin <= 0 {
		historyOnJoin = defaultHistoryOnJoin
	}
	return &ChatUseCase{
		conversationRepo: conversationRepo,
		negotiation:      negotiation,
		hub:              hub,
		typing:           typing,
		locks:            locks,
		historyOnJoin:    historyOnJoin,
	}
}

type CreateConversationInput struct {
	RecipientID string
	ProductID   string
}

type SendMessageInput struct {
	ConversationID string
	Text           string
	MessageType    entity.MessageType
	PriceOffer     *float64
}

// CreateConversation opens a buyer/farmer conversation, or returns the
// existing one for the same pair and product. The recipient takes the role
// opposite the caller's. created is false when an existing one was found.
func (uc *ChatUseCase) CreateConversation(ctx context.Context, caller entity.Identity, input CreateConversationInput) (conv *entity.Conversation, created bool, err error) {
	if !caller.Valid() {
		return nil, false, errors.Unauthenticated("Caller has no buyer or farmer role", nil)
	}
	recipientID := strings.TrimSpace(input.RecipientID)
	if recipientID == "" {
		return nil, false, errors.BadRequest("Recipient is required", nil)
	}
	if recipientID == caller.UserID {
		return nil, false, errors.BadRequest("Cannot start a conversation with yourself", nil)
	}

	key := conversationKey(caller.UserID, recipientID, input.ProductID)
	unlock := uc.locks.Lock(key)
	defer unlock()

	existing, err := uc.conversationRepo.FindByParticipants(ctx, caller.UserID, recipientID, input.ProductID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		logger.Error("CreateConversation Error: lookup for %s/%s failed: %v", caller.UserID, recipientID, err)
		return nil, false, err
	}

	// the id is derived from the pair and product so another instance racing
	// on the same triple collides on Create instead of writing a duplicate
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
	conv = entity.NewConversation(id, input.ProductID,
		entity.Participant{UserID: caller.UserID, Role: caller.Role},
		entity.Participant{UserID: recipientID, Role: caller.Role.Counterpart()},
	)
	if err := uc.conversationRepo.Create(ctx, conv); err != nil {
		if errors.Is(err, errors.CodeConflict) {
			existing, getErr := uc.conversationRepo.GetByID(ctx, id)
			if getErr == nil {
				return existing, false, nil
			}
			err = getErr
		}
		logger.Error("CreateConversation Error: failed to create conversation: %v", err)
		return nil, false, err
	}

	logger.Info("Conversation %s created between %s (%s) and %s", conv.ID, caller.UserID, caller.Role, recipientID)
	return conv, true, nil
}

// conversationKey is the same for both orderings of the pair.
func conversationKey(userA, userB, productID string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return "create:" + userA + "|" + userB + "|" + productID
}

func (uc *ChatUseCase) GetConversation(ctx context.Context, userID, conversationID string) (*entity.Conversation, error) {
	conv, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(userID) {
		return nil, errors.NotAParticipant(conversationID)
	}
	return conv, nil
}

// ListConversations returns the user's conversations, most recently active first.
func (uc *ChatUseCase) ListConversations(ctx context.Context, userID string, limit int) ([]*entity.Conversation, error) {
	if limit <= 0 {
		limit = defaultConversationCap
	}
	return uc.conversationRepo.ListByUserID(ctx, userID, limit)
}

// GetMessages pages history backwards from beforeSeq, oldest first.
func (uc *ChatUseCase) GetMessages(ctx context.Context, userID, conversationID string, beforeSeq int64, limit int) ([]*entity.Message, error) {
	if _, err := uc.GetConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return uc.conversationRepo.ListMessages(ctx, conversationID, beforeSeq, limit)
}

// JoinConversation subscribes the session and sends it a state snapshot.
// Holding the conversation lock means no append can land between the
// snapshot and the subscription, so the snapshot precedes any later event.
func (uc *ChatUseCase) JoinConversation(ctx context.Context, session *ws.Session, conversationID string) (*ws.ConversationStateData, error) {
	unlock := uc.locks.Lock(conversationID)
	defer unlock()

	if _, err := uc.hub.Subscribe(ctx, session, conversationID); err != nil {
		return nil, err
	}

	state, err := uc.conversationState(ctx, conversationID)
	if err != nil {
		uc.hub.Unsubscribe(session, conversationID)
		return nil, err
	}

	uc.hub.SendToSession(session, ws.NewEvent(ws.EventConversationState, state))
	return state, nil
}

func (uc *ChatUseCase) LeaveConversation(session *ws.Session, conversationID string) error {
	if !uc.hub.Unsubscribe(session, conversationID) {
		return errors.BadRequest("Not joined to this conversation", nil)
	}
	return nil
}

func (uc *ChatUseCase) conversationState(ctx context.Context, conversationID string) (*ws.ConversationStateData, error) {
	conv, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	messages, err := uc.conversationRepo.ListMessages(ctx, conversationID, 0, uc.historyOnJoin)
	if err != nil {
		return nil, err
	}
	return &ws.ConversationStateData{Conversation: conv, Messages: messages}, nil
}

// SendMessage appends a text message, or routes a price_offer to the
// negotiation engine.
func (uc *ChatUseCase) SendMessage(ctx context.Context, senderID string, input SendMessageInput) (*entity.Message, error) {
	text := strings.TrimSpace(input.Text)
	if len([]rune(text)) > maxMessageLength {
		return nil, errors.BadRequest("Message is too long", nil)
	}

	var (
		message *entity.Message
		err     error
	)
	switch input.MessageType {
	case entity.MessageTypePriceOffer:
		if input.PriceOffer == nil {
			return nil, errors.InvalidAmount("price_offer messages need a price offer")
		}
		message, err = uc.negotiation.SubmitOffer(ctx, input.ConversationID, senderID, *input.PriceOffer, text)
	case entity.MessageTypeText, "":
		if input.PriceOffer != nil {
			return nil, errors.BadRequest("Only price_offer messages may carry a price offer", nil)
		}
		if text == "" {
			return nil, errors.BadRequest("Message text is required", nil)
		}
		message, err = uc.appendText(ctx, input.ConversationID, senderID, text)
	default:
		return nil, errors.BadRequest("Unsupported message type", nil)
	}
	if err != nil {
		return nil, err
	}

	if uc.typing != nil {
		uc.typing.StopTyping(input.ConversationID, senderID)
	}
	return message, nil
}

func (uc *ChatUseCase) appendText(ctx context.Context, conversationID, senderID, text string) (*entity.Message, error) {
	message := &entity.Message{
		ID:       uuid.New().String(),
		SenderID: senderID,
		Text:     text,
		Type:     entity.MessageTypeText,
	}

	unlock := uc.locks.Lock(conversationID)
	defer unlock()

	_, err := uc.conversationRepo.AppendMessage(ctx, conversationID, message, func(conv *entity.Conversation) error {
		if !conv.IsParticipant(senderID) {
			return errors.NotAParticipant(conversationID)
		}
		return nil
	})
	if err != nil {
		logger.Error("SendMessage Error: append to conversation %s failed: %v", conversationID, err)
		return nil, err
	}

	metrics.MessagesAppended.WithLabelValues(string(message.Type)).Inc()
	uc.hub.Broadcast(conversationID, ws.NewEvent(ws.EventNewMessage, message))
	return message, nil
}
