package chatclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"showroom-chat/internal/models"
)

// chatServer is a minimal stand-in for the HTTP side of the service.
type chatServer struct {
	*httptest.Server

	mu           sync.Mutex
	history      []models.Message
	failGet      bool
	failPost     bool
	sentBodies   []string
	typingStates []bool
}

func newChatServer(t *testing.T) *chatServer {
	t.Helper()
	s := &chatServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.failGet {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"messages": s.history})
	})
	mux.HandleFunc("POST /conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Body string `json:"body"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.failPost {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		s.sentBodies = append(s.sentBodies, req.Body)
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /conversations/{id}/typing", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IsTyping bool `json:"is_typing"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		s.typingStates = append(s.typingStates, req.IsTyping)
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *chatServer) sends() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.sentBodies...)
}

func (s *chatServer) typingPosts() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool{}, s.typingStates...)
}

func messageEvent(id, conversationID string, senderID int, body string) models.ChatEvent {
	return models.ChatEvent{
		Type: models.EventMessage,
		Message: &models.Message{
			ID:             id,
			ConversationID: conversationID,
			SenderID:       senderID,
			Body:           body,
			Kind:           models.KindText,
			SentAt:         time.Now(),
		},
	}
}

func newTestClient(srv *chatServer, transports ...Transport) *Client {
	return New(Config{BaseURL: srv.URL, Token: "test-token", UserID: 1}, transports...)
}

func TestJoinLoadsHistory(t *testing.T) {
	srv := newChatServer(t)
	srv.history = []models.Message{
		{ID: "m1", ConversationID: "c1", SenderID: 2, Body: "hello"},
		{ID: "m2", ConversationID: "c1", SenderID: 1, Body: "hi"},
	}

	client := newTestClient(srv, newFakeTransport("a"))
	defer client.Close()

	room := client.Join(context.Background(), "c1")
	defer room.Close()

	msgs := room.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "m1", msgs[0].ID)
	require.Equal(t, "m2", msgs[1].ID)
}

func TestJoinLoadFailureLeavesEmptyList(t *testing.T) {
	srv := newChatServer(t)
	srv.failGet = true

	client := newTestClient(srv, newFakeTransport("a"))
	defer client.Close()

	room := client.Join(context.Background(), "c1")
	defer room.Close()

	require.Empty(t, room.Messages())
}

func TestDuplicateAcrossTransportsRenderedOnce(t *testing.T) {
	srv := newChatServer(t)
	feed := newFakeTransport("feed")
	push := newFakeTransport("push")

	client := newTestClient(srv, feed, push)
	defer client.Close()

	room := client.Join(context.Background(), "c1")
	defer room.Close()

	event := messageEvent("m1", "c1", 2, "hello")
	feed.emit("c1", models.EventMessage, event)
	push.emit("c1", models.EventMessage, event)

	msgs := room.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "m1", msgs[0].ID)

	// A genuinely new id still gets through.
	push.emit("c1", models.EventMessage, messageEvent("m2", "c1", 2, "more"))
	require.Len(t, room.Messages(), 2)
}

func TestFirstSeenOrderPreserved(t *testing.T) {
	srv := newChatServer(t)
	feed := newFakeTransport("feed")
	push := newFakeTransport("push")

	client := newTestClient(srv, feed, push)
	defer client.Close()

	room := client.Join(context.Background(), "c1")
	defer room.Close()

	// Push wins the race for m2, the feed copy arrives later and is dropped.
	push.emit("c1", models.EventMessage, messageEvent("m2", "c1", 2, "second"))
	feed.emit("c1", models.EventMessage, messageEvent("m1", "c1", 2, "first"))
	feed.emit("c1", models.EventMessage, messageEvent("m2", "c1", 2, "second"))

	msgs := room.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "m2", msgs[0].ID)
	require.Equal(t, "m1", msgs[1].ID)
}

func TestJoinTwiceSubscribesOnce(t *testing.T) {
	srv := newChatServer(t)
	feed := newFakeTransport("feed")

	client := newTestClient(srv, feed)
	defer client.Close()

	first := client.Join(context.Background(), "c1")
	second := client.Join(context.Background(), "c1")
	defer first.Close()
	defer second.Close()

	require.Equal(t, 1, feed.subscribeCount("c1", models.EventMessage))
	require.Equal(t, 1, feed.subscribeCount("c1", models.EventTyping))
}

func TestSelfEchoRenderedOnce(t *testing.T) {
	srv := newChatServer(t)
	feed := newFakeTransport("feed")
	push := newFakeTransport("push")

	client := newTestClient(srv, feed, push)
	defer client.Close()

	room := client.Join(context.Background(), "c1")
	defer room.Close()

	require.NoError(t, room.Send(context.Background(), "Hi"))
	require.Equal(t, []string{"Hi"}, srv.sends())
	// Nothing rendered until the echo comes back.
	require.Empty(t, room.Messages())

	echo := messageEvent("m1", "c1", 1, "Hi")
	feed.emit("c1", models.EventMessage, echo)
	push.emit("c1", models.EventMessage, echo)

	msgs := room.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, 1, msgs[0].SenderID)
}

func TestSendBlankIsNoop(t *testing.T) {
	srv := newChatServer(t)
	client := newTestClient(srv, newFakeTransport("a"))
	defer client.Close()

	room := client.Join(context.Background(), "c1")
	defer room.Close()

	require.NoError(t, room.Send(context.Background(), ""))
	require.NoError(t, room.Send(context.Background(), "   "))
	require.Empty(t, srv.sends())
	require.Empty(t, room.Messages())
}

func TestSendSingleFlight(t *testing.T) {
	srv := newChatServer(t)
	client := newTestClient(srv, newFakeTransport("a"))
	defer client.Close()

	room := client.Join(context.Background(), "c1")
	defer room.Close()

	room.mu.Lock()
	room.sending = true
	room.mu.Unlock()

	require.NoError(t, room.Send(context.Background(), "queued"))
	require.Empty(t, srv.sends())

	room.mu.Lock()
	room.sending = false
	room.mu.Unlock()

	require.NoError(t, room.Send(context.Background(), "queued"))
	require.Equal(t, []string{"queued"}, srv.sends())
}

func TestSendFailureReturnsError(t *testing.T) {
	srv := newChatServer(t)
	srv.failPost = true

	client := newTestClient(srv, newFakeTransport("a"))
	defer client.Close()

	room := client.Join(context.Background(), "c1")
	defer room.Close()

	require.Error(t, room.Send(context.Background(), "Hi"))
	require.Empty(t, room.Messages())
}

func TestTypingDebounce(t *testing.T) {
	srv := newChatServer(t)
	client := newTestClient(srv, newFakeTransport("a"))
	defer client.Close()

	room := client.Join(context.Background(), "c1")
	defer room.Close()
	room.idle = 200 * time.Millisecond

	// Rapid keystrokes: one leading typing:true, countdown keeps resetting.
	room.NotifyTyping()
	time.Sleep(30 * time.Millisecond)
	room.NotifyTyping()
	time.Sleep(30 * time.Millisecond)
	room.NotifyTyping()

	require.Eventually(t, func() bool {
		return len(srv.typingPosts()) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, []bool{true}, srv.typingPosts())

	// Well inside the idle window after the last keystroke: no stop signal.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, []bool{true}, srv.typingPosts())

	// Once the full window elapses, exactly one typing:false fires.
	require.Eventually(t, func() bool {
		posts := srv.typingPosts()
		return len(posts) == 2 && !posts[1]
	}, time.Second, 5*time.Millisecond)

	// And it stays at one; the timer does not re-fire.
	time.Sleep(2 * room.idle)
	require.Len(t, srv.typingPosts(), 2)
}

func TestTypingRestartsAfterStop(t *testing.T) {
	srv := newChatServer(t)
	client := newTestClient(srv, newFakeTransport("a"))
	defer client.Close()

	room := client.Join(context.Background(), "c1")
	defer room.Close()
	room.idle = 40 * time.Millisecond

	room.NotifyTyping()
	require.Eventually(t, func() bool {
		return len(srv.typingPosts()) == 2
	}, time.Second, 5*time.Millisecond)

	room.NotifyTyping()
	require.Eventually(t, func() bool {
		return len(srv.typingPosts()) == 4
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, []bool{true, false, true, false}, srv.typingPosts())
}

func TestCloseReleasesAllHandles(t *testing.T) {
	srv := newChatServer(t)
	feed := newFakeTransport("feed")
	push := newFakeTransport("push")

	client := newTestClient(srv, feed, push)
	defer client.Close()

	room := client.Join(context.Background(), "c1")
	require.True(t, client.messages.active("c1"))
	require.True(t, client.typing.active("c1"))

	room.Close()

	require.False(t, client.messages.active("c1"))
	require.False(t, client.typing.active("c1"))
	require.Equal(t, 0, feed.openCount())
	require.Equal(t, 0, push.openCount())
}

func TestEventAfterCloseIgnored(t *testing.T) {
	srv := newChatServer(t)
	feed := newFakeTransport("feed")

	client := newTestClient(srv, feed)
	defer client.Close()

	room := client.Join(context.Background(), "c1")
	room.Close()

	// A late callback from an already-cancelled feed must not mutate the room.
	feed.emit("c1", models.EventMessage, messageEvent("m1", "c1", 2, "late"))
	require.Empty(t, room.Messages())
}

func TestClientCloseTearsDownEverything(t *testing.T) {
	srv := newChatServer(t)
	feed := newFakeTransport("feed")

	client := newTestClient(srv, feed)

	client.Join(context.Background(), "c1")
	client.Join(context.Background(), "c2")
	require.Equal(t, 4, feed.openCount())

	require.NoError(t, client.Close())
	require.Equal(t, 0, feed.openCount())
}

func TestTypingActiveLastWriteWins(t *testing.T) {
	srv := newChatServer(t)
	feed := newFakeTransport("feed")

	client := newTestClient(srv, feed)
	defer client.Close()

	room := client.Join(context.Background(), "c1")
	defer room.Close()

	typingEvent := func(isTyping bool) models.ChatEvent {
		return models.ChatEvent{
			Type:   models.EventTyping,
			Typing: &models.TypingState{ConversationID: "c1", UserID: 2, IsTyping: isTyping},
		}
	}

	require.False(t, client.TypingActive("c1"))
	feed.emit("c1", models.EventTyping, typingEvent(true))
	require.True(t, client.TypingActive("c1"))
	feed.emit("c1", models.EventTyping, typingEvent(false))
	require.False(t, client.TypingActive("c1"))
}
