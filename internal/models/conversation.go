package models

import "time"

// Conversation is the message thread between one customer and one dealer
// about one car. Conversations are created server-side on first contact;
// clients only ever subscribe to them.
type Conversation struct {
	ID         string    `db:"id" json:"id"`
	CustomerID int       `db:"customer_id" json:"customer_id"`
	DealerID   int       `db:"dealer_id" json:"dealer_id"`
	CarID      int       `db:"car_id" json:"car_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Participant reports whether userID belongs to the conversation.
func (c Conversation) Participant(userID int) bool {
	return c.CustomerID == userID || c.DealerID == userID
}
