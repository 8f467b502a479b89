package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"showroom-chat/internal/models"
)

var ErrConversationNotFound = errors.New("conversation not found")

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	CreateOrGetConversation(ctx context.Context, customerID, dealerID, carID int) (models.Conversation, error)
	IsParticipant(ctx context.Context, conversationID string, userID int) (bool, error)
	GetConversation(ctx context.Context, conversationID string) (models.Conversation, error)
	ListConversations(ctx context.Context, userID int) ([]models.Conversation, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// CreateOrGetConversation creates the thread between a customer and a dealer
// about a car if it does not already exist.
func (r *ConversationRepo) CreateOrGetConversation(ctx context.Context, customerID, dealerID, carID int) (models.Conversation, error) {
	if customerID == dealerID {
		return models.Conversation{}, errors.New("cannot start conversation with self")
	}

	var conv models.Conversation
	query := `SELECT id, customer_id, dealer_id, car_id, created_at FROM conversations
        WHERE customer_id=$1 AND dealer_id=$2 AND car_id=$3`
	err := r.db.GetContext(ctx, &conv, query, customerID, dealerID, carID)
	if err == nil {
		return conv, nil
	}
	if err != sql.ErrNoRows {
		return models.Conversation{}, err
	}

	err = r.db.QueryRowxContext(ctx, `INSERT INTO conversations (id, customer_id, dealer_id, car_id)
        VALUES ($1, $2, $3, $4) RETURNING id, customer_id, dealer_id, car_id, created_at`,
		uuid.NewString(), customerID, dealerID, carID).
		Scan(&conv.ID, &conv.CustomerID, &conv.DealerID, &conv.CarID, &conv.CreatedAt)
	if err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// IsParticipant checks whether a user belongs to the conversation.
func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID string, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM conversations WHERE id=$1 AND (customer_id=$2 OR dealer_id=$2))`, conversationID, userID)
	return exists, err
}

// GetConversation fetches a conversation by id.
func (r *ConversationRepo) GetConversation(ctx context.Context, conversationID string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT id, customer_id, dealer_id, car_id, created_at FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// ListConversations returns conversations the user participates in, newest first.
func (r *ConversationRepo) ListConversations(ctx context.Context, userID int) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.SelectContext(ctx, &convs, `SELECT id, customer_id, dealer_id, car_id, created_at FROM conversations
        WHERE customer_id=$1 OR dealer_id=$1 ORDER BY created_at DESC`, userID)
	return convs, err
}
