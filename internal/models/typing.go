package models

import "time"

// TypingState is the transient per-user, per-conversation composition
// signal. One logical row per (conversation, user), overwritten on every
// update; last write wins.
type TypingState struct {
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	UserID         int       `db:"user_id" json:"user_id"`
	IsTyping       bool      `db:"is_typing" json:"is_typing"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
