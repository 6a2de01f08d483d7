package store

import (
	"testing"
	"time"

	"github.com/volunteerhub/volunteerhub/internal/database"
	"github.com/volunteerhub/volunteerhub/internal/model"
)

func setupEventTestDB(t *testing.T) (*EventStore, *JoinRequestStore, int64, int64) {
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

	result, err = db.Exec("INSERT INTO users (username, email) VALUES ('volunteer', 'volunteer@example.com')")
	if err != nil {
		t.Fatalf("create volunteer: %v", err)
	}
	volunteerID, _ := result.LastInsertId()

	return NewEventStore(db), NewJoinRequestStore(db), ownerID, volunteerID
}

func TestCreateAndGetEvent(t *testing.T) {
	es, _, ownerID, _ := setupEventTestDB(t)

	start := time.Now().Add(time.Hour)
	end := start.Add(2 * time.Hour)
	event, err := es.Create(ownerID, "Park cleanup", "Bring gloves", "Riverside Park", start, end)
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if event.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if event.Status != model.EventStatusOpen {
		t.Errorf("status = %q, want %q", event.Status, model.EventStatusOpen)
	}

	got, err := es.GetByID(event.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got == nil || got.Title != "Park cleanup" {
		t.Errorf("got = %v", got)
	}
}

func TestListExpired(t *testing.T) {
	es, _, ownerID, _ := setupEventTestDB(t)

	now := time.Now()
	past, _ := es.Create(ownerID, "Ended", "", "", now.Add(-3*time.Hour), now.Add(-time.Hour))
	es.Create(ownerID, "Ongoing", "", "", now.Add(-time.Hour), now.Add(time.Hour))

	expired, err := es.ListExpired(now)
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != past.ID {
		t.Fatalf("expected only the ended event, got %v", expired)
	}

	// Once marked, it drops out of the expired set
	if err := es.MarkExpired(past.ID); err != nil {
		t.Fatalf("mark expired: %v", err)
	}
	expired, _ = es.ListExpired(now)
	if len(expired) != 0 {
		t.Errorf("expected no expired events after marking, got %d", len(expired))
	}

	got, _ := es.GetByID(past.ID)
	if got.Status != model.EventStatusExpired {
		t.Errorf("status = %q, want %q", got.Status, model.EventStatusExpired)
	}
}

func TestJoinRequestLifecycle(t *testing.T) {
	es, js, ownerID, volunteerID := setupEventTestDB(t)

	event, _ := es.Create(ownerID, "Food drive", "", "", time.Now(), time.Now().Add(time.Hour))

	req, err := js.Create(event.ID, volunteerID)
	if err != nil {
		t.Fatalf("create join request: %v", err)
	}
	if req.Status != model.JoinStatusPending {
		t.Errorf("status = %q, want %q", req.Status, model.JoinStatusPending)
	}

	// Repeat requests return the existing row
	again, err := js.Create(event.ID, volunteerID)
	if err != nil {
		t.Fatalf("repeat join request: %v", err)
	}
	if again.ID != req.ID {
		t.Errorf("expected same request on repeat, got %d != %d", again.ID, req.ID)
	}

	if err := js.UpdateStatus(req.ID, model.JoinStatusAccepted); err != nil {
		t.Fatalf("update status: %v", err)
	}

	participants, err := js.ListParticipants(event.ID)
	if err != nil {
		t.Fatalf("list participants: %v", err)
	}
	if len(participants) != 1 || participants[0] != volunteerID {
		t.Errorf("participants = %v, want [%d]", participants, volunteerID)
	}
}

func TestListParticipantsExcludesPendingAndRejected(t *testing.T) {
	es, js, ownerID, volunteerID := setupEventTestDB(t)

	event, _ := es.Create(ownerID, "Shelter shift", "", "", time.Now(), time.Now().Add(time.Hour))
	req, _ := js.Create(event.ID, volunteerID)

	participants, _ := js.ListParticipants(event.ID)
	if len(participants) != 0 {
		t.Errorf("pending request should not appear, got %v", participants)
	}

	js.UpdateStatus(req.ID, model.JoinStatusRejected)
	participants, _ = js.ListParticipants(event.ID)
	if len(participants) != 0 {
		t.Errorf("rejected request should not appear, got %v", participants)
	}
}
