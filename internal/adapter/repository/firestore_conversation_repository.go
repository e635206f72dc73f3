package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"farmconnect/internal/domain/entity"
	"farmconnect/internal/domain/repository"
	"farmconnect/pkg/errors"
	"farmconnect/pkg/logger"
)

const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) doc(id string) *firestore.DocumentRef {
	return r.client.Collection(conversationsCollection).Doc(id)
}

func (r *firestoreConversationRepository) Create(ctx context.Context, conv *entity.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	if conv.DealStatus == "" {
		conv.DealStatus = entity.DealNone
	}

	if _, err := r.doc(conv.ID).Create(ctx, conv); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Conversation already exists")
		}
		return errors.Internal("Failed to create conversation", err)
	}

	return nil
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	snap, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.Internal("Failed to get conversation", err)
	}

	return decodeConversation(snap)
}

func (r *firestoreConversationRepository) FindByParticipants(ctx context.Context, userA, userB, productID string) (*entity.Conversation, error) {
	query := r.client.Collection(conversationsCollection).
		Where("participantIds", "array-contains", userA).
		Where("productId", "==", productID)

	iter := query.Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to query conversations", err)
		}

		conv, err := decodeConversation(snap)
		if err != nil {
			logger.Warn("Skipping malformed conversation %s: %v", snap.Ref.ID, err)
			continue
		}
		if conv.IsParticipant(userB) {
			return conv, nil
		}
	}

	return nil, errors.NotFound("Conversation", nil)
}

func (r *firestoreConversationRepository) ListByUserID(ctx context.Context, userID string, limit int) ([]*entity.Conversation, error) {
	query := r.client.Collection(conversationsCollection).
		Where("participantIds", "array-contains", userID).
		OrderBy("updatedAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while listing conversations for user %s: %v", userID, err)
		return nil, errors.Internal("Failed to list conversations", err)
	}

	convs := make([]*entity.Conversation, 0, len(docs))
	for _, snap := range docs {
		conv, err := decodeConversation(snap)
		if err != nil {
			logger.Warn("Skipping malformed conversation %s: %v", snap.Ref.ID, err)
			continue
		}
		convs = append(convs, conv)
	}

	return convs, nil
}

func (r *firestoreConversationRepository) Update(ctx context.Context, id string, mutate repository.ConversationMutation) (*entity.Conversation, error) {
	var committed *entity.Conversation

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		conv, err := r.getInTx(tx, id)
		if err != nil {
			return err
		}

		if err := mutate(conv); err != nil {
			return err
		}
		conv.UpdatedAt = time.Now().UTC()

		committed = conv
		return tx.Set(r.doc(id), conv)
	})
	if err != nil {
		return nil, wrapTxError("Failed to update conversation", err)
	}

	return committed, nil
}

func (r *firestoreConversationRepository) AppendMessage(ctx context.Context, conversationID string, message *entity.Message, mutate repository.ConversationMutation) (*entity.Conversation, error) {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.ConversationID = conversationID

	var committed *entity.Conversation

	// The transaction function may be retried on contention; everything it
	// derives is recomputed from the fresh read each attempt.
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		conv, err := r.getInTx(tx, conversationID)
		if err != nil {
			return err
		}

		if mutate != nil {
			if err := mutate(conv); err != nil {
				return err
			}
		}

		stampMessage(conv, message, time.Now().UTC())

		msgRef := r.doc(conversationID).Collection(messagesCollection).Doc(message.ID)
		if err := tx.Create(msgRef, message); err != nil {
			return err
		}

		committed = conv
		return tx.Set(r.doc(conversationID), conv)
	})
	if err != nil {
		return nil, wrapTxError("Failed to append message", err)
	}

	return committed, nil
}

func (r *firestoreConversationRepository) GetMessage(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	snap, err := r.doc(conversationID).Collection(messagesCollection).Doc(messageID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Internal("Failed to get message", err)
	}

	var message entity.Message
	if err := snap.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return &message, nil
}

func (r *firestoreConversationRepository) ListMessages(ctx context.Context, conversationID string, beforeSeq int64, limit int) ([]*entity.Message, error) {
	query := r.doc(conversationID).Collection(messagesCollection).OrderBy("seq", firestore.Desc)
	if beforeSeq > 0 {
		query = query.Where("seq", "<", beforeSeq)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var messages []*entity.Message
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while iterating messages for conversation %s: %v", conversationID, err)
			return nil, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := snap.DataTo(&message); err != nil {
			return nil, errors.Internal("Failed to parse message data", err)
		}
		messages = append(messages, &message)
	}

	sort.Slice(messages, func(i, j int) bool { return messages[i].Seq < messages[j].Seq })
	return messages, nil
}

func (r *firestoreConversationRepository) getInTx(tx *firestore.Transaction, id string) (*entity.Conversation, error) {
	snap, err := tx.Get(r.doc(id))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, err
	}
	return decodeConversation(snap)
}

func decodeConversation(snap *firestore.DocumentSnapshot) (*entity.Conversation, error) {
	var conv entity.Conversation
	if err := snap.DataTo(&conv); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	if conv.ID == "" {
		conv.ID = snap.Ref.ID
	}
	return &conv, nil
}

// wrapTxError keeps application errors raised inside a transaction intact.
func wrapTxError(message string, err error) error {
	if _, ok := err.(*errors.AppError); ok {
		return err
	}
	return errors.Internal(message, err)
}
