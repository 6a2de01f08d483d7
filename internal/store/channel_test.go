package store

import (
	"testing"

	"github.com/volunteerhub/volunteerhub/internal/database"
)

func setupChannelTestDB(t *testing.T) (*ChannelStore, int64, int64) {
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

	result, err = db.Exec("INSERT INTO users (username, email) VALUES ('member', 'member@example.com')")
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	memberID, _ := result.LastInsertId()

	return NewChannelStore(db), ownerID, memberID
}

func TestCreateChannelOwnerIsMember(t *testing.T) {
	cs, ownerID, _ := setupChannelTestDB(t)

	ch, err := cs.Create("cleanup crew", ownerID)
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}
	if ch.ID == 0 {
		t.Error("expected non-zero ID")
	}

	ok, err := cs.IsMember(ownerID, ch.ID)
	if err != nil {
		t.Fatalf("check membership: %v", err)
	}
	if !ok {
		t.Error("owner should be a member of their own channel")
	}
}

func TestChannelMembership(t *testing.T) {
	cs, ownerID, memberID := setupChannelTestDB(t)

	ch, _ := cs.Create("planning", ownerID)

	ok, _ := cs.IsMember(memberID, ch.ID)
	if ok {
		t.Error("non-member should not be a member")
	}

	if err := cs.AddMember(ch.ID, memberID); err != nil {
		t.Fatalf("add member: %v", err)
	}
	// Adding twice is fine
	if err := cs.AddMember(ch.ID, memberID); err != nil {
		t.Fatalf("re-add member: %v", err)
	}

	ok, _ = cs.IsMember(memberID, ch.ID)
	if !ok {
		t.Error("added user should be a member")
	}

	if err := cs.RemoveMember(ch.ID, memberID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	ok, _ = cs.IsMember(memberID, ch.ID)
	if ok {
		t.Error("removed user should not be a member")
	}
}

func TestIsMemberUnknownChannel(t *testing.T) {
	cs, ownerID, _ := setupChannelTestDB(t)

	ok, err := cs.IsMember(ownerID, 9999)
	if err != nil {
		t.Fatalf("check membership: %v", err)
	}
	if ok {
		t.Error("unknown channel should have no members")
	}
}
