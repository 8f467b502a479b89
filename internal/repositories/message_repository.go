package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"showroom-chat/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	MarkRead(ctx context.Context, conversationID string, readerID int) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, conversation_id, sender_id, sender_name, sender_role, body, kind,
        attachment_url, attachment_name, attachment_mime, read_flag, sent_at`

// CreateMessage stores a message, assigning it a fresh id.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Kind == "" {
		msg.Kind = models.KindText
	}

	var attURL, attName, attMime sql.NullString
	if msg.Attachment != nil {
		attURL = sql.NullString{String: msg.Attachment.URL, Valid: true}
		attName = sql.NullString{String: msg.Attachment.Name, Valid: true}
		attMime = sql.NullString{String: msg.Attachment.MimeType, Valid: true}
	}

	row := r.db.QueryRowxContext(ctx, `INSERT INTO messages
        (id, conversation_id, sender_id, sender_name, sender_role, body, kind, attachment_url, attachment_name, attachment_mime)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING `+messageColumns,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Sender.DisplayName, msg.Sender.Role,
		msg.Body, msg.Kind, attURL, attName, attMime)

	return scanMessage(row)
}

// ListMessages returns conversation messages ordered ascending by timestamp.
func (r *MessageRepo) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT `+messageColumns+` FROM messages
        WHERE conversation_id=$1 ORDER BY sent_at ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	row := r.db.QueryRowxContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// MarkRead flags every message sent by the other side as read.
func (r *MessageRepo) MarkRead(ctx context.Context, conversationID string, readerID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET read_flag = TRUE
        WHERE conversation_id=$1 AND sender_id<>$2 AND read_flag = FALSE`, conversationID, readerID)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (models.Message, error) {
	var msg models.Message
	var attURL, attName, attMime sql.NullString
	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Sender.DisplayName, &msg.Sender.Role,
		&msg.Body, &msg.Kind, &attURL, &attName, &attMime, &msg.Read, &msg.SentAt)
	if err != nil {
		return models.Message{}, err
	}
	if attURL.Valid {
		msg.Attachment = &models.Attachment{URL: attURL.String, Name: attName.String, MimeType: attMime.String}
	}
	return msg, nil
}
