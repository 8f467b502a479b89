package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"showroom-chat/internal/models"
	"showroom-chat/internal/observability"
)

// Room kinds served by the hub.
const (
	KindMessage = "message"
	KindTyping  = "typing"
)

// Hub maintains active websocket rooms, keyed by conversation id. Message
// and typing subscriptions are tracked separately so a client can hold one
// without the other.
type Hub struct {
	messageRooms    map[string]map[*websocket.Conn]bool
	typingRooms     map[string]map[*websocket.Conn]bool
	messageConnInfo map[string]map[*websocket.Conn]ConnInfo
	typingConnInfo  map[string]map[*websocket.Conn]ConnInfo
	mu              sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		messageRooms:    make(map[string]map[*websocket.Conn]bool),
		typingRooms:     make(map[string]map[*websocket.Conn]bool),
		messageConnInfo: make(map[string]map[*websocket.Conn]ConnInfo),
		typingConnInfo:  make(map[string]map[*websocket.Conn]ConnInfo),
	}
}

func (h *Hub) rooms(kind string) (map[string]map[*websocket.Conn]bool, map[string]map[*websocket.Conn]ConnInfo) {
	if kind == KindTyping {
		return h.typingRooms, h.typingConnInfo
	}
	return h.messageRooms, h.messageConnInfo
}

// AddClient registers a websocket connection to a conversation room.
func (h *Hub) AddClient(kind, conversationID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms, infos := h.rooms(kind)
	if _, ok := rooms[conversationID]; !ok {
		rooms[conversationID] = make(map[*websocket.Conn]bool)
	}
	rooms[conversationID][conn] = true
	if _, ok := infos[conversationID]; !ok {
		infos[conversationID] = make(map[*websocket.Conn]ConnInfo)
	}
	infos[conversationID][conn] = info
}

// RemoveClient removes a websocket connection from a conversation room.
func (h *Hub) RemoveClient(kind, conversationID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms, infos := h.rooms(kind)
	if conns, ok := rooms[conversationID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(rooms, conversationID)
		}
	}
	if connInfos, ok := infos[conversationID]; ok {
		delete(connInfos, conn)
		if len(connInfos) == 0 {
			delete(infos, conversationID)
		}
	}
}

// BroadcastMessage sends a new message to every client in the conversation.
func (h *Hub) BroadcastMessage(conversationID string, msg models.Message) {
	event := models.ChatEvent{Type: models.EventMessage, Message: &msg}
	h.broadcast(KindMessage, conversationID, event)
}

// BroadcastTyping sends a typing-state change to every typing subscriber.
func (h *Hub) BroadcastTyping(conversationID string, state models.TypingState) {
	event := models.ChatEvent{Type: models.EventTyping, Typing: &state}
	h.broadcast(KindTyping, conversationID, event)
}

func (h *Hub) broadcast(kind, conversationID string, event models.ChatEvent) {
	h.mu.RLock()
	rooms, _ := h.rooms(kind)
	conns := make([]*websocket.Conn, 0, len(rooms[conversationID]))
	for conn := range rooms[conversationID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.publishWSError(kind, conversationID, conn, err)
			h.RemoveClient(kind, conversationID, conn)
		}
	}
}

func (h *Hub) publishWSError(kind, conversationID string, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(kind, conversationID, conn)
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":            kind,
			"conversation_id": conversationID,
			"event":           "ws_error",
			"conn_id":         info.ConnID,
			"duration_ms":     time.Since(info.ConnectedAt).Milliseconds(),
			"reason":          err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent(kind, "ws_error")
}

func (h *Hub) getConnInfo(kind, conversationID string, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, infos := h.rooms(kind)
	if connInfos, ok := infos[conversationID]; ok {
		info, exists := connInfos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}

func wsRoutingKey(kind string) string {
	if kind == KindTyping {
		return "ws_events.typing"
	}
	return "ws_events.messages"
}
