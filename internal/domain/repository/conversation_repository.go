package repository

import (
	"context"

	"farmconnect/internal/domain/entity"
)

// ConversationMutation edits a conversation inside an atomic read-modify-write.
// Returning an error aborts the write and leaves the stored document untouched.
type ConversationMutation func(conv *entity.Conversation) error

type ConversationRepository interface {
	Create(ctx context.Context, conv *entity.Conversation) error
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	// FindByParticipants returns the conversation between both users about productID.
	FindByParticipants(ctx context.Context, userA, userB, productID string) (*entity.Conversation, error)
	ListByUserID(ctx context.Context, userID string, limit int) ([]*entity.Conversation, error)

	// Update applies mutate atomically to the stored conversation.
	Update(ctx context.Context, id string, mutate ConversationMutation) (*entity.Conversation, error)

	// AppendMessage atomically runs mutate, assigns the message its server-side
	// seq and createdAt, stores it and refreshes the conversation's last
	// message summary. The returned conversation is the committed state.
	AppendMessage(ctx context.Context, conversationID string, message *entity.Message, mutate ConversationMutation) (*entity.Conversation, error)

	GetMessage(ctx context.Context, conversationID, messageID string) (*entity.Message, error)
	// ListMessages returns up to limit messages with seq < beforeSeq (all when
	// beforeSeq is zero), oldest first.
	ListMessages(ctx context.Context, conversationID string, beforeSeq int64, limit int) ([]*entity.Message, error)
}
