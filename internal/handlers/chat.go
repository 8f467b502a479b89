package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"showroom-chat/internal/models"
	"showroom-chat/internal/rabbitmq"
	"showroom-chat/internal/repositories"
	"showroom-chat/internal/telemetry"
	"showroom-chat/internal/ws"
)

// ChatHandler manages conversation endpoints.
type ChatHandler struct {
	conversationRepo repositories.ConversationRepository
	messageRepo      repositories.MessageRepository
	typingRepo       repositories.TypingRepository
	hub              *ws.Hub
	publisher        rabbitmq.Publisher
	audit            *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(conversationRepo repositories.ConversationRepository, messageRepo repositories.MessageRepository, typingRepo repositories.TypingRepository, hub *ws.Hub, publisher rabbitmq.Publisher, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		typingRepo:       typingRepo,
		hub:              hub,
		publisher:        publisher,
		audit:            audit,
	}
}

// ListConversations returns the conversations of the authenticated user.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID := c.GetInt("userID")

	convs, err := h.conversationRepo.ListConversations(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// StartConversation creates or returns the thread between the caller and a
// dealer about a car.
func (h *ChatHandler) StartConversation(c *gin.Context) {
	var req struct {
		DealerID int `json:"dealer_id" binding:"required"`
		CarID    int `json:"car_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if userID == req.DealerID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot start conversation with yourself"})
		return
	}

	conv, err := h.conversationRepo.CreateOrGetConversation(c.Request.Context(), userID, req.DealerID, req.CarID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create conversation"})
		return
	}

	h.emitConversationAudit(c, "INFO", "conversation started", conv.ID)
	c.JSON(http.StatusOK, gin.H{"conversation_id": conv.ID})
}

// GetMessages returns the conversation messages ascending by timestamp.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	userID := c.GetInt("userID")

	member, err := h.conversationRepo.IsParticipant(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
		return
	}

	msgs, err := h.messageRepo.ListMessages(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage stores a message and fans it out over both transports. The
// sender receives no copy in the response body beyond the stored row; its
// UI waits for the transport echo.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	userID := c.GetInt("userID")

	conv, err := h.conversationRepo.GetConversation(c.Request.Context(), conversationID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrConversationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "conversation not found"})
		return
	}
	if !conv.Participant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
		return
	}

	var req struct {
		Body       string             `json:"body" binding:"required"`
		Kind       string             `json:"kind"`
		Attachment *models.Attachment `json:"attachment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty message body"})
		return
	}
	if !validKind(req.Kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message kind"})
		return
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), models.Message{
		ConversationID: conversationID,
		SenderID:       userID,
		Body:           req.Body,
		Kind:           req.Kind,
		Attachment:     req.Attachment,
		Sender: models.Sender{
			DisplayName: c.GetString("userName"),
			Role:        c.GetString("userRole"),
		},
	})
	if err != nil {
		h.emitConversationAudit(c, "ERROR", "failed to store message", conversationID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.fanOutMessage(c, msg)
	c.JSON(http.StatusCreated, msg)
}

// PostTyping upserts the caller's typing state and fans it out.
func (h *ChatHandler) PostTyping(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	userID := c.GetInt("userID")

	member, err := h.conversationRepo.IsParticipant(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
		return
	}

	var req struct {
		IsTyping *bool `json:"is_typing" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.typingRepo.UpsertTyping(c.Request.Context(), conversationID, userID, *req.IsTyping)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store typing state"})
		return
	}

	h.fanOutTyping(c, state)
	c.Status(http.StatusNoContent)
}

// MarkRead flags every message from the other participant as read.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	userID := c.GetInt("userID")

	member, err := h.conversationRepo.IsParticipant(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
		return
	}

	if err := h.messageRepo.MarkRead(c.Request.Context(), conversationID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark messages read"})
		return
	}

	c.Status(http.StatusNoContent)
}

// fanOutMessage delivers a stored message over the websocket rooms and the
// AMQP exchange. Both transports carry the same envelope; clients
// de-duplicate by message id.
func (h *ChatHandler) fanOutMessage(c *gin.Context, msg models.Message) {
	h.hub.BroadcastMessage(msg.ConversationID, msg)

	event := models.ChatEvent{Type: models.EventMessage, Message: &msg}
	if err := h.publisher.Publish(c.Request.Context(), rabbitmq.MessageRoutingKey(msg.ConversationID), event); err != nil {
		log.Printf("amqp message fan-out failed: %v", err)
	}
}

func (h *ChatHandler) fanOutTyping(c *gin.Context, state models.TypingState) {
	h.hub.BroadcastTyping(state.ConversationID, state)

	event := models.ChatEvent{Type: models.EventTyping, Typing: &state}
	if err := h.publisher.Publish(c.Request.Context(), rabbitmq.TypingRoutingKey(state.ConversationID), event); err != nil {
		log.Printf("amqp typing fan-out failed: %v", err)
	}
}

func validKind(kind string) bool {
	switch kind {
	case "", models.KindText, models.KindFile, models.KindCarRef:
		return true
	}
	return false
}
