package ws

import "testing"

func TestHubAddAndRemoveMessageClient(t *testing.T) {
	hub := NewHub()

	hub.AddClient(KindMessage, "conv-1", nil, ConnInfo{})
	if len(hub.messageRooms) != 1 {
		t.Fatalf("expected message room to be created")
	}

	hub.RemoveClient(KindMessage, "conv-1", nil)
	if len(hub.messageRooms) != 0 {
		t.Fatalf("expected message room to be removed")
	}
}

func TestHubAddAndRemoveTypingClient(t *testing.T) {
	hub := NewHub()

	hub.AddClient(KindTyping, "conv-2", nil, ConnInfo{})
	if len(hub.typingRooms) != 1 {
		t.Fatalf("expected typing room to be created")
	}
	if len(hub.messageRooms) != 0 {
		t.Fatalf("typing client must not touch message rooms")
	}

	hub.RemoveClient(KindTyping, "conv-2", nil)
	if len(hub.typingRooms) != 0 {
		t.Fatalf("expected typing room to be removed")
	}
}

func TestHubRemoveUnknownClientIsNoop(t *testing.T) {
	hub := NewHub()

	hub.RemoveClient(KindMessage, "never-added", nil)
	if len(hub.messageRooms) != 0 {
		t.Fatalf("expected no rooms")
	}
}
