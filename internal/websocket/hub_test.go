package websocket

import (
	"encoding/json"
	"log/slog"
	"testing"
)

func newTestClient(hub *Hub, householdID int64) *Client {
	return &Client{
		hub:         hub,
		householdID: householdID,
		send:        make(chan []byte, sendBufferSize),
	}
}

func TestNewMessageType(t *testing.T) {
	msg := NewMessage("task", "completed", 7)
	if msg.Type != "task_completed" {
		t.Errorf("type = %q, want %q", msg.Type, "task_completed")
	}
	if msg.ID != 7 {
		t.Errorf("id = %d, want 7", msg.ID)
	}
}

func TestBroadcastScopedToHousehold(t *testing.T) {
	hub := NewHub(slog.New(slog.DiscardHandler))

	mine := newTestClient(hub, 1)
	theirs := newTestClient(hub, 2)
	hub.Register(mine)
	hub.Register(theirs)

	hub.Broadcast(1, NewMessage("task", "created", 7))

	select {
	case data := <-mine.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Entity != "task" || msg.Action != "created" {
			t.Errorf("message = %+v", msg)
		}
	default:
		t.Fatal("expected message for household 1 client")
	}

	select {
	case <-theirs.send:
		t.Fatal("household 2 client must not receive household 1 broadcasts")
	default:
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(slog.New(slog.DiscardHandler))
	c := newTestClient(hub, 1)
	hub.Register(c)

	for i := 0; i < sendBufferSize+5; i++ {
		hub.Broadcast(1, NewMessage("task", "updated", int64(i)))
	}
	if n := len(c.send); n != sendBufferSize {
		t.Errorf("buffered = %d, want %d (overflow dropped)", n, sendBufferSize)
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	hub := NewHub(slog.New(slog.DiscardHandler))
	c := newTestClient(hub, 1)
	hub.Register(c)
	if hub.ClientCount(1) != 1 {
		t.Fatalf("client count = %d, want 1", hub.ClientCount(1))
	}

	hub.Unregister(c)
	if hub.ClientCount(1) != 0 {
		t.Errorf("client count = %d, want 0", hub.ClientCount(1))
	}
	if _, open := <-c.send; open {
		t.Error("expected send channel closed")
	}

	// Double unregister must not panic.
	hub.Unregister(c)
}
