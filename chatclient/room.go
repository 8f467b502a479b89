package chatclient

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"showroom-chat/internal/models"
)

// typingIdle is how long after the last keystroke the typing:false signal
// fires. Trailing edge only; every keystroke resets the countdown.
const typingIdle = 1000 * time.Millisecond

// Room holds one conversation's rendered message list and the outbound
// send/typing state. A room is owned by exactly one view; the message list
// is never shared across rooms.
type Room struct {
	client         *Client
	conversationID string

	mu       sync.Mutex
	messages []models.Message
	seen     map[string]struct{}
	sending  bool
	typing   bool
	timer    *time.Timer
	timerGen uint64
	closed   bool

	idle time.Duration
}

func newRoom(client *Client, conversationID string) *Room {
	return &Room{
		client:         client,
		conversationID: conversationID,
		seen:           make(map[string]struct{}),
		idle:           typingIdle,
	}
}

// load fetches the history once, ascending by timestamp. Failure is logged
// and leaves the list empty; there is no retry.
func (r *Room) load(ctx context.Context) {
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	if err := r.client.getJSON(ctx, "/conversations/"+r.conversationID+"/messages", &resp); err != nil {
		log.Printf("initial load failed conversation=%s: %v", r.conversationID, err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range resp.Messages {
		if _, ok := r.seen[msg.ID]; ok {
			continue
		}
		r.seen[msg.ID] = struct{}{}
		r.messages = append(r.messages, msg)
	}
}

// apply merges one inbound event. Whatever transport it arrived on and in
// whatever order the transports raced, a message id is appended at most
// once; the second copy is discarded. This id rule is also what keeps the
// sender's own echo single, so no separate self-suppression path is needed.
func (r *Room) apply(event models.ChatEvent) {
	if event.Type != models.EventMessage || event.Message == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if _, ok := r.seen[event.Message.ID]; ok {
		return
	}

	msg := *event.Message
	if msg.ReceivedAt == nil {
		now := time.Now()
		msg.ReceivedAt = &now
	}
	r.seen[msg.ID] = struct{}{}
	r.messages = append(r.messages, msg)
}

// Messages returns a copy of the list in first-seen order. No re-sort by
// timestamp happens after the initial load.
func (r *Room) Messages() []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Send posts a new message. Blank or whitespace-only input is a no-op, as
// is calling while a previous send is still in flight. Nothing is appended
// locally; the confirmed message arrives through a transport and is merged
// by apply. On failure the caller keeps its input for a manual retry.
func (r *Room) Send(ctx context.Context, body string) error {
	if strings.TrimSpace(body) == "" {
		return nil
	}

	r.mu.Lock()
	if r.sending || r.closed {
		r.mu.Unlock()
		return nil
	}
	r.sending = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.sending = false
		r.mu.Unlock()
	}()

	err := r.client.postJSON(ctx, "/conversations/"+r.conversationID+"/messages", map[string]any{
		"body": body,
	})
	if err != nil {
		log.Printf("send failed conversation=%s: %v", r.conversationID, err)
		return err
	}
	return nil
}

// NotifyTyping records a keystroke. The first keystroke after idle posts
// typing:true immediately; the typing:false post fires once, exactly idle
// after the last keystroke. Keystrokes while already typing only reset the
// countdown, they never re-post typing:true.
func (r *Room) NotifyTyping() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	first := !r.typing
	r.typing = true
	r.timerGen++
	gen := r.timerGen
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.idle, func() { r.stopTyping(gen) })
	r.mu.Unlock()

	if first {
		go r.postTyping(true)
	}
}

func (r *Room) stopTyping(gen uint64) {
	r.mu.Lock()
	// A keystroke that raced the timer firing has already rescheduled it.
	if r.closed || gen != r.timerGen || !r.typing {
		r.mu.Unlock()
		return
	}
	r.typing = false
	r.timer = nil
	r.mu.Unlock()

	r.postTyping(false)
}

func (r *Room) postTyping(isTyping bool) {
	err := r.client.postJSON(context.Background(), "/conversations/"+r.conversationID+"/typing", map[string]any{
		"is_typing": isTyping,
	})
	if err != nil {
		log.Printf("typing update failed conversation=%s: %v", r.conversationID, err)
	}
}

// Close tears the room down: both channel subscriptions are released and
// late transport callbacks or in-flight sends become no-ops. If the user
// was mid-typing, a best-effort typing:false is posted so the other side
// is not left with a stuck indicator.
func (r *Room) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	wasTyping := r.typing
	r.typing = false
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()

	r.client.leave(r.conversationID)

	if wasTyping {
		r.postTyping(false)
	}
}
