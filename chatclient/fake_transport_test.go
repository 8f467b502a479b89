package chatclient

import (
	"sync"

	"showroom-chat/internal/models"
)

// fakeTransport records subscriptions and lets tests push events into them.
type fakeTransport struct {
	name string

	mu         sync.Mutex
	subscribes map[string]int
	handlers   map[string][]func(models.ChatEvent)
	open       int
}

func newFakeTransport(name string) *fakeTransport {
	return &fakeTransport{
		name:       name,
		subscribes: make(map[string]int),
		handlers:   make(map[string][]func(models.ChatEvent)),
	}
}

func feedKey(conversationID, kind string) string {
	return conversationID + "|" + kind
}

func (t *fakeTransport) Name() string { return t.name }

func (t *fakeTransport) Subscribe(conversationID, kind string, fn func(models.ChatEvent)) (Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := feedKey(conversationID, kind)
	t.subscribes[key]++
	t.handlers[key] = append(t.handlers[key], fn)
	t.open++
	return &fakeSubscription{transport: t}, nil
}

func (t *fakeTransport) emit(conversationID, kind string, event models.ChatEvent) {
	t.mu.Lock()
	handlers := append([]func(models.ChatEvent){}, t.handlers[feedKey(conversationID, kind)]...)
	t.mu.Unlock()
	for _, fn := range handlers {
		fn(event)
	}
}

func (t *fakeTransport) subscribeCount(conversationID, kind string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subscribes[feedKey(conversationID, kind)]
}

func (t *fakeTransport) openCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open
}

type fakeSubscription struct {
	transport *fakeTransport
	once      sync.Once
}

func (s *fakeSubscription) Close() error {
	s.once.Do(func() {
		s.transport.mu.Lock()
		s.transport.open--
		s.transport.mu.Unlock()
	})
	return nil
}
