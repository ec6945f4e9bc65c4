package syncer

import (
	"testing"

	"github.com/avelar/hometask/internal/database"
	"github.com/avelar/hometask/internal/store"
)

func setupMapper(t *testing.T) (*Mapper, *store.HouseholdStore, *store.PersonStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	hs := store.NewHouseholdStore(db)
	ps := store.NewPersonStore(db)
	return NewMapper(hs, ps), hs, ps
}

func TestMapperRemoteAssigneeID(t *testing.T) {
	m, hs, ps := setupMapper(t)
	h, _ := hs.Create("Smith Family", "smith@example.com", "hash", "salt")
	p, _ := ps.Create("Alice", h.ID)

	// Unsynced person maps to the empty key; the push proceeds anyway.
	key, err := m.RemoteAssigneeID(&p.ID)
	if err != nil {
		t.Fatalf("map unsynced: %v", err)
	}
	if key != "" {
		t.Errorf("key = %q, want empty for unsynced person", key)
	}

	ps.SetRemote(p.ID, "-pKey", "-hKey")
	key, err = m.RemoteAssigneeID(&p.ID)
	if err != nil {
		t.Fatalf("map synced: %v", err)
	}
	if key != "-pKey" {
		t.Errorf("key = %q, want %q", key, "-pKey")
	}

	key, err = m.RemoteAssigneeID(nil)
	if err != nil || key != "" {
		t.Errorf("nil assignee = (%q, %v), want empty", key, err)
	}
}

func TestMapperLocalHouseholdIDFallback(t *testing.T) {
	m, hs, _ := setupMapper(t)
	h, _ := hs.Create("Smith Family", "smith@example.com", "hash", "salt")
	hs.SetRemoteID(h.ID, "-hKey")

	id, err := m.LocalHouseholdID("-hKey", 999)
	if err != nil {
		t.Fatalf("map known key: %v", err)
	}
	if id != h.ID {
		t.Errorf("id = %d, want %d", id, h.ID)
	}

	// Unknown and empty keys fall back to the syncing household.
	id, err = m.LocalHouseholdID("-unknown", h.ID)
	if err != nil || id != h.ID {
		t.Errorf("unknown key = (%d, %v), want fallback %d", id, err, h.ID)
	}
	id, err = m.LocalHouseholdID("", h.ID)
	if err != nil || id != h.ID {
		t.Errorf("empty key = (%d, %v), want fallback %d", id, err, h.ID)
	}
}

func TestMapperLocalAssigneeID(t *testing.T) {
	m, hs, ps := setupMapper(t)
	h, _ := hs.Create("Smith Family", "smith@example.com", "hash", "salt")
	p, _ := ps.Create("Alice", h.ID)
	ps.SetRemote(p.ID, "-pKey", "-hKey")

	id, err := m.LocalAssigneeID("-pKey")
	if err != nil {
		t.Fatalf("map known key: %v", err)
	}
	if id == nil || *id != p.ID {
		t.Errorf("id = %v, want %d", id, p.ID)
	}

	id, err = m.LocalAssigneeID("-unknown")
	if err != nil || id != nil {
		t.Errorf("unknown key = (%v, %v), want nil", id, err)
	}
	id, err = m.LocalAssigneeID("")
	if err != nil || id != nil {
		t.Errorf("empty key = (%v, %v), want nil", id, err)
	}
}
