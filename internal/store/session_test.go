package store

import (
	"testing"
	"time"

	"github.com/avelar/hometask/internal/database"
)

func setupSessionTestDB(t *testing.T) (*SessionStore, *HouseholdStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSessionStore(db), NewHouseholdStore(db)
}

func TestSessionCreateAndGet(t *testing.T) {
	ss, hs := setupSessionTestDB(t)
	h, _ := hs.Create("Smith Family", "smith@example.com", "hash", "salt")

	sess, err := ss.Create(h.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.Token == "" {
		t.Fatal("expected non-empty token")
	}
	if !sess.ExpiresAt.After(time.Now()) {
		t.Error("expected future expiry")
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil || got.HouseholdID != h.ID {
		t.Fatalf("got %+v, want session for household %d", got, h.ID)
	}
}

func TestSessionGetUnknownToken(t *testing.T) {
	ss, _ := setupSessionTestDB(t)

	got, err := ss.GetByToken("not-a-token")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown token")
	}
}

func TestSessionDelete(t *testing.T) {
	ss, hs := setupSessionTestDB(t)
	h, _ := hs.Create("Smith Family", "smith@example.com", "hash", "salt")

	sess, _ := ss.Create(h.ID)
	if err := ss.Delete(sess.Token); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, _ := ss.GetByToken(sess.Token)
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestSessionDeleteExpired(t *testing.T) {
	ss, hs := setupSessionTestDB(t)
	h, _ := hs.Create("Smith Family", "smith@example.com", "hash", "salt")

	sess, _ := ss.Create(h.ID)
	if _, err := ss.db.Exec(
		`UPDATE sessions SET expires_at = ? WHERE token = ?`,
		time.Now().UTC().Add(-time.Hour), sess.Token,
	); err != nil {
		t.Fatalf("backdate session: %v", err)
	}

	n, err := ss.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}
