package handler

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/volunteerhub/volunteerhub/internal/auth"
	"github.com/volunteerhub/volunteerhub/internal/database"
	"github.com/volunteerhub/volunteerhub/internal/store"
)

type publishCall struct {
	channel string
	event   string
	payload any
}

type fakeBroadcaster struct {
	calls []publishCall
}

func (f *fakeBroadcaster) Publish(channel, event string, payload any) {
	f.calls = append(f.calls, publishCall{channel, event, payload})
}

func setupChannelHandler(t *testing.T) (*ChannelHandler, *fakeBroadcaster, *store.ChannelStore, int64, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	result, err := db.Exec("INSERT INTO users (username, email) VALUES ('owner', 'owner@example.com')")
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	ownerID, _ := result.LastInsertId()

	result, err = db.Exec("INSERT INTO users (username, email) VALUES ('outsider', 'outsider@example.com')")
	if err != nil {
		t.Fatalf("create outsider: %v", err)
	}
	outsiderID, _ := result.LastInsertId()

	channels := store.NewChannelStore(db)
	broadcaster := &fakeBroadcaster{}
	return NewChannelHandler(channels, broadcaster, slog.Default()), broadcaster, channels, ownerID, outsiderID
}

func messageRequestFor(t *testing.T, userID, channelID int64, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/channels/"+strconv.FormatInt(channelID, 10)+"/messages", strings.NewReader(body))
	req.SetPathValue("id", strconv.FormatInt(channelID, 10))
	return req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{UserID: userID, Role: "user"}))
}

func TestSendMessageBroadcastsToGroup(t *testing.T) {
	h, broadcaster, channels, ownerID, _ := setupChannelHandler(t)

	ch, err := channels.Create("cleanup crew", ownerID)
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}

	req := messageRequestFor(t, ownerID, ch.ID, `{"message": "meet at the north gate"}`)
	rec := httptest.NewRecorder()
	h.SendMessage(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if len(broadcaster.calls) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(broadcaster.calls))
	}
	call := broadcaster.calls[0]
	if call.channel != "chat."+strconv.FormatInt(ch.ID, 10) {
		t.Errorf("channel = %q, want chat.%d", call.channel, ch.ID)
	}
	if call.event != "message.new" {
		t.Errorf("event = %q, want message.new", call.event)
	}
	msg, ok := call.payload.(wireMessage)
	if !ok {
		t.Fatalf("payload type = %T, want wireMessage", call.payload)
	}
	if msg.SenderID != ownerID || msg.Message != "meet at the north gate" {
		t.Errorf("payload = %+v", msg)
	}
}

func TestSendMessageRequiresMembership(t *testing.T) {
	h, broadcaster, channels, ownerID, outsiderID := setupChannelHandler(t)

	ch, _ := channels.Create("planning", ownerID)

	req := messageRequestFor(t, outsiderID, ch.ID, `{"message": "hi"}`)
	rec := httptest.NewRecorder()
	h.SendMessage(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if len(broadcaster.calls) != 0 {
		t.Errorf("nothing should be published, got %d calls", len(broadcaster.calls))
	}

	// Membership unlocks the channel
	channels.AddMember(ch.ID, outsiderID)
	req = messageRequestFor(t, outsiderID, ch.ID, `{"message": "hi"}`)
	rec = httptest.NewRecorder()
	h.SendMessage(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("status after joining = %d, want 201", rec.Code)
	}
}

func TestSendMessageEmptyBody(t *testing.T) {
	h, broadcaster, channels, ownerID, _ := setupChannelHandler(t)

	ch, _ := channels.Create("planning", ownerID)

	req := messageRequestFor(t, ownerID, ch.ID, `{"message": "   "}`)
	rec := httptest.NewRecorder()
	h.SendMessage(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(broadcaster.calls) != 0 {
		t.Errorf("nothing should be published, got %d calls", len(broadcaster.calls))
	}
}
