package repository

import (
	"time"

	"farmconnect/internal/domain/entity"
)

// stampMessage assigns the next per-conversation seq and a createdAt that never
// goes backwards, then refreshes the conversation's denormalized summary.
func stampMessage(conv *entity.Conversation, message *entity.Message, now time.Time) {
	conv.MessageSeq++
	message.Seq = conv.MessageSeq

	createdAt := now
	if createdAt.Before(conv.LastMessageAt) {
		createdAt = conv.LastMessageAt
	}
	message.CreatedAt = createdAt

	conv.LastMessageAt = createdAt
	conv.LastMessageSummary = message.Summary()
	conv.UpdatedAt = now
}
