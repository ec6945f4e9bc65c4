package store

import (
	"testing"

	"github.com/avelar/hometask/internal/database"
)

func setupPushTestDB(t *testing.T) (*PushStore, *HouseholdStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPushStore(db), NewHouseholdStore(db)
}

func TestPushSubscriptionCreate(t *testing.T) {
	ps, hs := setupPushTestDB(t)
	h, _ := hs.Create("Smith Family", "smith@example.com", "hash", "salt")

	sub, err := ps.Create(h.ID, "https://push.example/ep1", "p256dh-key", "auth-key")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if sub.Endpoint != "https://push.example/ep1" {
		t.Errorf("endpoint = %q", sub.Endpoint)
	}
}

func TestPushSubscriptionUpsertByEndpoint(t *testing.T) {
	ps, hs := setupPushTestDB(t)
	h, _ := hs.Create("Smith Family", "smith@example.com", "hash", "salt")

	ps.Create(h.ID, "https://push.example/ep1", "old-key", "old-auth")
	sub, err := ps.Create(h.ID, "https://push.example/ep1", "new-key", "new-auth")
	if err != nil {
		t.Fatalf("re-create subscription: %v", err)
	}
	if sub.P256dhKey != "new-key" {
		t.Errorf("p256dh = %q, want %q", sub.P256dhKey, "new-key")
	}

	subs, _ := ps.ListByHousehold(h.ID)
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscription after upsert, got %d", len(subs))
	}
}

func TestPushSubscriptionDeleteByEndpoint(t *testing.T) {
	ps, hs := setupPushTestDB(t)
	h, _ := hs.Create("Smith Family", "smith@example.com", "hash", "salt")

	ps.Create(h.ID, "https://push.example/ep1", "key", "auth")
	if err := ps.DeleteByEndpoint("https://push.example/ep1"); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}

	subs, _ := ps.ListByHousehold(h.ID)
	if len(subs) != 0 {
		t.Fatalf("expected 0 subscriptions, got %d", len(subs))
	}
}
