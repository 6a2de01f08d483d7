package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		conn: nil,
		send: make(chan []byte, sendBufferSize),
	}
}

func TestRegisterRemove(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Remove(c1)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after remove, got %d", got)
	}

	hub.Remove(c2)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleRemove(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub)
	hub.Register(c)
	hub.Remove(c)
	// Should not panic
	hub.Remove(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestPublishToSubscribers(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)
	c3 := mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)

	hub.Subscribe(c1, "notifications.7")
	hub.Subscribe(c2, "notifications.7")
	hub.Subscribe(c3, "notifications.8")

	hub.Publish("notifications.7", "notification.new", map[string]any{"id": float64(42)})

	// Both subscribers of notifications.7 receive the event
	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var got Event
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Channel != "notifications.7" {
				t.Errorf("expected channel notifications.7, got %s", got.Channel)
			}
			if got.Event != "notification.new" {
				t.Errorf("expected event notification.new, got %s", got.Event)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for event")
		}
	}

	// The subscriber of a different channel gets nothing
	select {
	case <-c3.send:
		t.Fatal("c3 should not have received the event")
	default:
	}
}

func TestPublishNoSubscribers(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic or block
	hub.Publish("notifications.99", "notification.new", nil)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub)
	hub.Register(c)
	hub.Subscribe(c, "chat.3")

	if got := hub.SubscriberCount("chat.3"); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	hub.Unsubscribe(c, "chat.3")

	if got := hub.SubscriberCount("chat.3"); got != 0 {
		t.Fatalf("expected 0 subscribers after unsubscribe, got %d", got)
	}

	hub.Publish("chat.3", "message.new", nil)
	select {
	case <-c.send:
		t.Fatal("unsubscribed client should not receive events")
	default:
	}
}

func TestRemoveDropsSubscriptions(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub)
	hub.Register(c)
	hub.Subscribe(c, "notifications.1")
	hub.Subscribe(c, "chat.2")

	hub.Remove(c)

	if got := hub.SubscriberCount("notifications.1"); got != 0 {
		t.Errorf("expected 0 subscribers on notifications.1, got %d", got)
	}
	if got := hub.SubscriberCount("chat.2"); got != 0 {
		t.Errorf("expected 0 subscribers on chat.2, got %d", got)
	}
}

func TestPublishFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub)
	hub.Register(c)
	hub.Subscribe(c, "notifications.1")

	// Fill the send buffer
	for i := 0; i < sendBufferSize; i++ {
		hub.Publish("notifications.1", "notification.new", i)
	}

	// This should drop the event, not panic or block
	hub.Publish("notifications.1", "notification.new", "dropped")

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			if count != sendBufferSize {
				t.Errorf("expected %d events, got %d", sendBufferSize, count)
			}
			hub.Remove(c)
			return
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub)
			hub.Register(c)
			hub.Subscribe(c, "notifications.1")
			hub.Publish("notifications.1", "notification.new", nil)
			for {
				select {
				case <-c.send:
				default:
					hub.Remove(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
