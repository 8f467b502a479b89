package telemetry

import (
	"context"
	"log"
	"time"
)

// Publisher is the broker surface the emitter needs. The conversation
// fan-out publisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEnvelope is the versioned wire shape of one audit record.
type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

// AuditPayload carries the event itself. ConversationID is set when the
// event concerns a specific conversation.
type AuditPayload struct {
	Level          string `json:"level"`
	Text           string `json:"text"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// AuditEmitter publishes audit records to a fixed routing key. A nil
// emitter or a nil publisher makes every Emit a no-op, so callers never
// guard.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

// NewAuditEmitter builds an emitter bound to one routing key.
func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Emit publishes a service-level audit record.
func (e *AuditEmitter) Emit(ctx context.Context, level, text, requestID string, userID *string) {
	e.emit(ctx, AuditPayload{Level: level, Text: text}, requestID, userID)
}

// EmitConversation publishes an audit record tied to a conversation.
func (e *AuditEmitter) EmitConversation(ctx context.Context, level, text, conversationID, requestID string, userID *string) {
	e.emit(ctx, AuditPayload{Level: level, Text: text, ConversationID: conversationID}, requestID, userID)
}

func (e *AuditEmitter) emit(ctx context.Context, payload AuditPayload, requestID string, userID *string) {
	if e == nil || e.publisher == nil {
		return
	}

	log.Printf("audit emit: level=%s request_id=%s user_id=%v text=%q", payload.Level, requestID, userID, payload.Text)
	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		UserID:        userID,
		Payload:       payload,
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}
