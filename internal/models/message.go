package models

import "time"

// Message kinds.
const (
	KindText   = "text"
	KindFile   = "file"
	KindCarRef = "car_ref"
)

// Attachment describes a file referenced by a message.
type Attachment struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
}

// Sender is the display projection of the message author.
type Sender struct {
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// Message is a single chat message. ID is globally unique and is the
// de-duplication key: a message delivered through both transports must be
// rendered exactly once.
type Message struct {
	ID             string      `db:"id" json:"id"`
	ConversationID string      `db:"conversation_id" json:"conversation_id"`
	SenderID       int         `db:"sender_id" json:"sender_id"`
	Body           string      `db:"body" json:"body"`
	Kind           string      `db:"kind" json:"kind"`
	Attachment     *Attachment `db:"-" json:"attachment,omitempty"`
	Read           bool        `db:"read_flag" json:"read"`
	SentAt         time.Time   `db:"sent_at" json:"sent_at"`
	ReceivedAt     *time.Time  `db:"-" json:"received_at,omitempty"`
	Sender         Sender      `db:"-" json:"sender"`
}

// ChatEvent is the envelope broadcast through websockets and the AMQP
// exchange. Both transports deliver the same shape.
type ChatEvent struct {
	Type    string       `json:"type"`
	Message *Message     `json:"message,omitempty"`
	Typing  *TypingState `json:"typing,omitempty"`
}

// ChatEvent types.
const (
	EventMessage = "message"
	EventTyping  = "typing"
)
