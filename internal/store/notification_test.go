package store

import (
	"errors"
	"testing"

	"github.com/volunteerhub/volunteerhub/internal/database"
)

func setupNotificationTestDB(t *testing.T) (*NotificationStore, int64, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	result, err := db.Exec("INSERT INTO users (username, email) VALUES ('alice', 'alice@example.com')")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	receiverID, _ := result.LastInsertId()

	result, err = db.Exec("INSERT INTO users (username, email) VALUES ('bob', 'bob@example.com')")
	if err != nil {
		t.Fatalf("create sender: %v", err)
	}
	senderID, _ := result.LastInsertId()

	return NewNotificationStore(db), receiverID, senderID
}

func TestCreateNotification(t *testing.T) {
	ns, receiverID, senderID := setupNotificationTestDB(t)

	n, err := ns.Create(receiverID, &senderID, "New join request", "Someone wants to join", "event_join_request",
		map[string]any{"event_id": float64(3)})
	if err != nil {
		t.Fatalf("create notification: %v", err)
	}
	if n.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if n.ReceiverID != receiverID {
		t.Errorf("receiver_id = %d, want %d", n.ReceiverID, receiverID)
	}
	if n.SenderID == nil || *n.SenderID != senderID {
		t.Errorf("sender_id = %v, want %d", n.SenderID, senderID)
	}
	if n.IsRead {
		t.Error("new notification should be unread")
	}
	if n.Data["event_id"] != float64(3) {
		t.Errorf("data event_id = %v, want 3", n.Data["event_id"])
	}
	if n.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestCreateNotificationNilSender(t *testing.T) {
	ns, receiverID, _ := setupNotificationTestDB(t)

	n, err := ns.Create(receiverID, nil, "Event ended", "Your event has ended", "event_expired", nil)
	if err != nil {
		t.Fatalf("create notification: %v", err)
	}
	if n.SenderID != nil {
		t.Errorf("sender_id = %v, want nil", n.SenderID)
	}
	if n.Data == nil {
		t.Error("expected empty data map, got nil")
	}
}

func TestCreateNotificationUnknownReceiver(t *testing.T) {
	ns, _, _ := setupNotificationTestDB(t)

	_, err := ns.Create(9999, nil, "t", "m", "system", nil)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestListByReceiverNewestFirst(t *testing.T) {
	ns, receiverID, _ := setupNotificationTestDB(t)

	first, _ := ns.Create(receiverID, nil, "first", "m", "system", nil)
	second, _ := ns.Create(receiverID, nil, "second", "m", "system", nil)
	third, _ := ns.Create(receiverID, nil, "third", "m", "system", nil)

	list, err := ns.ListByReceiver(receiverID, false)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(list))
	}
	// Same-second timestamps fall back to id ordering
	if list[0].ID != third.ID || list[1].ID != second.ID || list[2].ID != first.ID {
		t.Errorf("unexpected order: %d, %d, %d", list[0].ID, list[1].ID, list[2].ID)
	}
}

func TestListByReceiverUnreadOnly(t *testing.T) {
	ns, receiverID, _ := setupNotificationTestDB(t)

	read, _ := ns.Create(receiverID, nil, "read", "m", "system", nil)
	ns.MarkRead(read.ID)
	unread, _ := ns.Create(receiverID, nil, "unread", "m", "system", nil)

	list, err := ns.ListByReceiver(receiverID, true)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(list) != 1 || list[0].ID != unread.ID {
		t.Fatalf("expected only the unread notification, got %v", list)
	}
}

func TestMarkAllReadReturnsAffectedIDs(t *testing.T) {
	ns, receiverID, _ := setupNotificationTestDB(t)

	n1, _ := ns.Create(receiverID, nil, "a", "m", "system", nil)
	n2, _ := ns.Create(receiverID, nil, "b", "m", "system", nil)
	already, _ := ns.Create(receiverID, nil, "c", "m", "system", nil)
	ns.MarkRead(already.ID)

	ids, err := ns.MarkAllRead(receiverID)
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 affected ids, got %d", len(ids))
	}
	want := map[int64]bool{n1.ID: true, n2.ID: true}
	for _, id := range ids {
		if !want[id] {
			t.Errorf("unexpected id %d in result", id)
		}
	}

	count, _ := ns.UnreadCount(receiverID)
	if count != 0 {
		t.Errorf("unread count = %d, want 0", count)
	}

	// Second call affects nothing
	ids, err = ns.MarkAllRead(receiverID)
	if err != nil {
		t.Fatalf("second mark all read: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no affected ids, got %v", ids)
	}
}

func TestDeleteNotification(t *testing.T) {
	ns, receiverID, _ := setupNotificationTestDB(t)

	n, _ := ns.Create(receiverID, nil, "bye", "m", "system", nil)
	if err := ns.Delete(n.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := ns.GetByID(n.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestUnreadCount(t *testing.T) {
	ns, receiverID, _ := setupNotificationTestDB(t)

	count, err := ns.UnreadCount(receiverID)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 0 {
		t.Errorf("initial count = %d, want 0", count)
	}

	ns.Create(receiverID, nil, "a", "m", "system", nil)
	n, _ := ns.Create(receiverID, nil, "b", "m", "system", nil)

	count, _ = ns.UnreadCount(receiverID)
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	ns.MarkRead(n.ID)
	count, _ = ns.UnreadCount(receiverID)
	if count != 1 {
		t.Errorf("count after mark read = %d, want 1", count)
	}
}
