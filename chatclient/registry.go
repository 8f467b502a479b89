package chatclient

import "sync"

// registry is the single source of truth for "am I already listening to
// conversation X". It holds at most one handle set per conversation;
// re-opening an already-open conversation is a no-op, and closing an
// unknown one is not an error.
type registry struct {
	mu   sync.Mutex
	subs map[string][]Subscription
}

func newRegistry() *registry {
	return &registry{subs: make(map[string][]Subscription)}
}

// open dials the conversation unless a handle set already exists. The dial
// result is stored even when empty so that a degraded (transport-less)
// subscription still counts as open.
func (r *registry) open(conversationID string, dial func() []Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[conversationID]; ok {
		return
	}
	r.subs[conversationID] = dial()
}

// close releases the conversation's handles if present.
func (r *registry) close(conversationID string) {
	r.mu.Lock()
	handles := r.subs[conversationID]
	delete(r.subs, conversationID)
	r.mu.Unlock()

	for _, handle := range handles {
		_ = handle.Close()
	}
}

// closeAll releases every remaining handle. Called on client teardown; a
// leaked handle would keep its socket open indefinitely.
func (r *registry) closeAll() {
	r.mu.Lock()
	all := r.subs
	r.subs = make(map[string][]Subscription)
	r.mu.Unlock()

	for _, handles := range all {
		for _, handle := range handles {
			_ = handle.Close()
		}
	}
}

// active reports whether the conversation currently has a handle set.
func (r *registry) active(conversationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.subs[conversationID]
	return ok
}
