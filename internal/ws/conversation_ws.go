package ws

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"showroom-chat/internal/auth"
	"showroom-chat/internal/observability"
	"showroom-chat/internal/repositories"
)

// ConversationWebSocketHandler serves the change-feed websocket endpoints
// for conversation messages and typing state.
type ConversationWebSocketHandler struct {
	hub              *Hub
	conversationRepo repositories.ConversationRepository
	validator        auth.Validator
}

// NewConversationWebSocketHandler constructs a ConversationWebSocketHandler.
func NewConversationWebSocketHandler(hub *Hub, conversationRepo repositories.ConversationRepository, validator auth.Validator) *ConversationWebSocketHandler {
	return &ConversationWebSocketHandler{hub: hub, conversationRepo: conversationRepo, validator: validator}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleMessages upgrades the connection and subscribes it to new-message
// events for the conversation.
func (h *ConversationWebSocketHandler) HandleMessages(c *gin.Context) {
	h.handle(c, KindMessage)
}

// HandleTyping upgrades the connection and subscribes it to typing events
// for the conversation.
func (h *ConversationWebSocketHandler) HandleTyping(c *gin.Context) {
	h.handle(c, KindTyping)
}

func (h *ConversationWebSocketHandler) handle(c *gin.Context, kind string) {
	conversationID := c.Param("conversation_id")
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	ctx, span := otel.Tracer("showroom-chat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	userID, err := h.validateToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	member, err := h.conversationRepo.IsParticipant(c.Request.Context(), conversationID, userID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for conversation"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	traceID := span.SpanContext().TraceID().String()
	info := newConnInfo(userID, c.Request, traceID)
	requestID := info.RequestID
	h.hub.AddClient(kind, conversationID, conn, info)

	observability.IncWSActive(kind)
	observability.IncWSEvent(kind, "ws_connect")
	_ = observability.PublishEvent(ctx, wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   wsEventPayload(kind, conversationID, "ws_connect", info, 0, ""),
	}, observability.BuildHeaders(requestID, traceID))

	// Keep connection alive and clean on close
	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(kind, conversationID, conn)
			observability.DecWSActive(kind)
			observability.IncWSEvent(kind, "ws_disconnect")
			_ = observability.PublishEvent(ctx, wsRoutingKey(kind), observability.EventEnvelope{
				EventType: "ws_events",
				EventName: "ws_disconnect",
				Payload:   wsEventPayload(kind, conversationID, "ws_disconnect", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason),
			}, observability.BuildHeaders(requestID, traceID))
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent(kind, "ws_error")
					_ = observability.PublishEvent(ctx, wsRoutingKey(kind), observability.EventEnvelope{
						EventType: "ws_events",
						EventName: "ws_error",
						Payload:   wsEventPayload(kind, conversationID, "ws_error", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason),
					}, observability.BuildHeaders(requestID, traceID))
				}
				return
			}
		}
	}()
}

func wsEventPayload(kind, conversationID, event string, info ConnInfo, durationMS int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":            kind,
			"conversation_id": conversationID,
			"event":           event,
			"conn_id":         info.ConnID,
			"duration_ms":     durationMS,
			"reason":          reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}

func (h *ConversationWebSocketHandler) validateToken(ctx context.Context, header string) (int, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		identity, err := h.validator.ValidateToken(ctx, parts[1])
		if err != nil {
			return 0, err
		}
		return identity.UserID, nil
	}
	return 0, fmt.Errorf("invalid token")
}
