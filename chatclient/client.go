package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"showroom-chat/internal/models"
)

// Config holds the client settings.
type Config struct {
	// BaseURL is the chat service HTTP base, e.g. http://localhost:8083.
	BaseURL string
	// Token is the bearer token attached to every HTTP call and to
	// transport authentication.
	Token string
	// UserID is the viewing user; used for self-echo bookkeeping.
	UserID int

	// AMQPURL enables the push transport when set. Leaving it empty (or a
	// failed connect) degrades to websocket + HTTP only.
	AMQPURL      string
	AMQPExchange string

	// HTTPClient is optional; the default has a bounded timeout.
	HTTPClient *http.Client
}

// Client owns the subscription registries and the outbound HTTP path. One
// client serves any number of conversation rooms; closing it releases every
// remaining subscription across both registries.
type Client struct {
	cfg        Config
	httpClient *http.Client
	transports []Transport
	amqp       *AMQPTransport

	messages *registry
	typing   *registry

	mu          sync.Mutex
	typingUsers map[string]bool
}

// New builds a client. When no transports are passed, the default
// websocket transport is used, plus the AMQP transport if configured.
func New(cfg Config, transports ...Transport) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	if len(transports) == 0 {
		transports = append(transports, NewWSTransport(wsBaseURL(cfg.BaseURL), cfg.Token))
	}

	c := &Client{
		cfg:         cfg,
		httpClient:  httpClient,
		transports:  transports,
		messages:    newRegistry(),
		typing:      newRegistry(),
		typingUsers: make(map[string]bool),
	}

	if cfg.AMQPURL != "" {
		amqp, err := NewAMQPTransport(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("push transport unavailable, continuing without it: %v", err)
		} else {
			c.amqp = amqp
			c.transports = append(c.transports, amqp)
		}
	}

	return c
}

func wsBaseURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	}
	return baseURL
}

// Join loads the conversation history and subscribes to message and typing
// events on every transport. Joining an already-joined conversation reuses
// the existing subscriptions.
func (c *Client) Join(ctx context.Context, conversationID string) *Room {
	room := newRoom(c, conversationID)
	room.load(ctx)

	c.messages.open(conversationID, func() []Subscription {
		return c.dial(conversationID, models.EventMessage, room.apply)
	})
	c.typing.open(conversationID, func() []Subscription {
		return c.dial(conversationID, models.EventTyping, c.applyTyping)
	})

	return room
}

// dial subscribes on every transport; a transport that fails to subscribe
// is logged and skipped, degrading delivery rather than failing the join.
func (c *Client) dial(conversationID, kind string, fn func(models.ChatEvent)) []Subscription {
	var handles []Subscription
	for _, transport := range c.transports {
		sub, err := transport.Subscribe(conversationID, kind, fn)
		if err != nil {
			log.Printf("subscribe failed transport=%s conversation=%s kind=%s: %v", transport.Name(), conversationID, kind, err)
			continue
		}
		handles = append(handles, sub)
	}
	return handles
}

// leave releases both registries' handles for the conversation. Closing an
// unsubscribed conversation is a no-op.
func (c *Client) leave(conversationID string) {
	c.messages.close(conversationID)
	c.typing.close(conversationID)

	c.mu.Lock()
	delete(c.typingUsers, conversationID)
	c.mu.Unlock()
}

func (c *Client) applyTyping(event models.ChatEvent) {
	if event.Type != models.EventTyping || event.Typing == nil {
		return
	}
	// Last write wins; transport delivery order is the only ordering. Good
	// enough for a cosmetic signal.
	c.mu.Lock()
	c.typingUsers[event.Typing.ConversationID] = event.Typing.IsTyping
	c.mu.Unlock()
}

// TypingActive reports the latest typing state seen for the conversation.
func (c *Client) TypingActive(conversationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typingUsers[conversationID]
}

// Close releases every remaining subscription in both registries and shuts
// down the push transport.
func (c *Client) Close() error {
	c.messages.closeAll()
	c.typing.closeAll()
	if c.amqp != nil {
		return c.amqp.Close()
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
