package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"showroom-chat/internal/models"
)

// TypingRepository persists the transient typing signal. One row per
// (conversation, user); every update overwrites the previous one.
type TypingRepository interface {
	UpsertTyping(ctx context.Context, conversationID string, userID int, isTyping bool) (models.TypingState, error)
}

// TypingRepo is a sqlx implementation of TypingRepository.
type TypingRepo struct {
	db *sqlx.DB
}

// NewTypingRepo constructs a TypingRepo.
func NewTypingRepo(db *sqlx.DB) *TypingRepo {
	return &TypingRepo{db: db}
}

// UpsertTyping writes the latest typing state, last write wins.
func (r *TypingRepo) UpsertTyping(ctx context.Context, conversationID string, userID int, isTyping bool) (models.TypingState, error) {
	var state models.TypingState
	err := r.db.QueryRowxContext(ctx, `INSERT INTO typing_states (conversation_id, user_id, is_typing, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (conversation_id, user_id) DO UPDATE SET is_typing = EXCLUDED.is_typing, updated_at = NOW()
        RETURNING conversation_id, user_id, is_typing, updated_at`, conversationID, userID, isTyping).
		Scan(&state.ConversationID, &state.UserID, &state.IsTyping, &state.UpdatedAt)
	return state, err
}
