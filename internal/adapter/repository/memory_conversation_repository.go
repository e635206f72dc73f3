package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"farmconnect/internal/domain/entity"
	"farmconnect/internal/domain/repository"
	"farmconnect/pkg/errors"
)

// memoryConversationRepository keeps conversations in process memory. It backs
// local development (STORE_BACKEND=memory) and tests. Every read-modify-write
// runs under one lock so each call is atomic like a Firestore transaction.
type memoryConversationRepository struct {
	mu            sync.RWMutex
	conversations map[string]*entity.Conversation
	messages      map[string][]*entity.Message
	now           func() time.Time
}

func NewMemoryConversationRepository() repository.ConversationRepository {
	return &memoryConversationRepository{
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string][]*entity.Message),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryConversationRepository) Create(ctx context.Context, conv *entity.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	if _, exists := r.conversations[conv.ID]; exists {
		return errors.Conflict("Conversation already exists")
	}

	now := r.now()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	if conv.DealStatus == "" {
		conv.DealStatus = entity.DealNone
	}

	r.conversations[conv.ID] = conv.Clone()
	return nil
}

func (r *memoryConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return conv.Clone(), nil
}

func (r *memoryConversationRepository) FindByParticipants(ctx context.Context, userA, userB, productID string) (*entity.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, conv := range r.conversations {
		if conv.ProductID == productID && conv.IsParticipant(userA) && conv.IsParticipant(userB) {
			return conv.Clone(), nil
		}
	}
	return nil, errors.NotFound("Conversation", nil)
}

func (r *memoryConversationRepository) ListByUserID(ctx context.Context, userID string, limit int) ([]*entity.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	convs := lo.FilterMap(lo.Values(r.conversations), func(conv *entity.Conversation, _ int) (*entity.Conversation, bool) {
		return conv.Clone(), conv.IsParticipant(userID)
	})
	sort.Slice(convs, func(i, j int) bool { return convs[i].UpdatedAt.After(convs[j].UpdatedAt) })

	if limit > 0 && len(convs) > limit {
		convs = convs[:limit]
	}
	return convs, nil
}

func (r *memoryConversationRepository) Update(ctx context.Context, id string, mutate repository.ConversationMutation) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}

	conv := stored.Clone()
	if err := mutate(conv); err != nil {
		return nil, err
	}
	conv.UpdatedAt = r.now()

	r.conversations[id] = conv
	return conv.Clone(), nil
}

func (r *memoryConversationRepository) AppendMessage(ctx context.Context, conversationID string, message *entity.Message, mutate repository.ConversationMutation) (*entity.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.conversations[conversationID]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}

	conv := stored.Clone()
	if mutate != nil {
		if err := mutate(conv); err != nil {
			return nil, err
		}
	}

	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.ConversationID = conversationID
	stampMessage(conv, message, r.now())

	persisted := *message
	r.messages[conversationID] = append(r.messages[conversationID], &persisted)
	r.conversations[conversationID] = conv
	return conv.Clone(), nil
}

func (r *memoryConversationRepository) GetMessage(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	message, ok := lo.Find(r.messages[conversationID], func(m *entity.Message) bool { return m.ID == messageID })
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	out := *message
	return &out, nil
}

func (r *memoryConversationRepository) ListMessages(ctx context.Context, conversationID string, beforeSeq int64, limit int) ([]*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// messages are appended in seq order
	all := r.messages[conversationID]
	end := len(all)
	if beforeSeq > 0 {
		end = sort.Search(len(all), func(i int) bool { return all[i].Seq >= beforeSeq })
	}
	start := 0
	if limit > 0 && end-limit > 0 {
		start = end - limit
	}

	out := make([]*entity.Message, 0, end-start)
	for _, m := range all[start:end] {
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}
