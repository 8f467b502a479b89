package chatclient

import (
	"encoding/json"
	"log"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"showroom-chat/internal/models"
)

// WSTransport subscribes to the service's websocket change-feed endpoints,
// one connection per conversation per kind.
type WSTransport struct {
	baseURL string
	token   string
}

// NewWSTransport builds a websocket transport. baseURL uses the ws or wss
// scheme without a trailing slash.
func NewWSTransport(baseURL, token string) *WSTransport {
	return &WSTransport{baseURL: baseURL, token: token}
}

func (t *WSTransport) Name() string { return "websocket" }

// Subscribe dials the conversation feed and pumps decoded events into fn
// until the subscription is closed or the connection drops.
func (t *WSTransport) Subscribe(conversationID, kind string, fn func(models.ChatEvent)) (Subscription, error) {
	endpoint := t.baseURL + "/ws/conversations/" + conversationID
	if kind == models.EventTyping {
		endpoint += "/typing"
	}
	endpoint += "?token=" + url.QueryEscape(t.token)

	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		return nil, err
	}

	sub := &wsSubscription{conn: conn}
	go func() {
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				if !sub.closedByUs() {
					log.Printf("websocket feed closed conversation=%s kind=%s: %v", conversationID, kind, err)
				}
				return
			}
			var event models.ChatEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				log.Printf("websocket feed decode error: %v", err)
				continue
			}
			fn(event)
		}
	}()
	return sub, nil
}

type wsSubscription struct {
	conn *websocket.Conn
	mu   sync.Mutex
	done bool
}

func (s *wsSubscription) Close() error {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil
	}
	s.done = true
	s.mu.Unlock()
	return s.conn.Close()
}

func (s *wsSubscription) closedByUs() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}
