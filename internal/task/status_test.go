package task

import (
	"testing"
	"time"

	"github.com/avelar/hometask/internal/database"
	"github.com/avelar/hometask/internal/model"
	"github.com/avelar/hometask/internal/store"
)

func millisPtr(ms int64) *int64 { return &ms }

func TestComputeStatusCompletedSticky(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour).UnixMilli()

	got := ComputeStatus(model.Task{Status: model.StatusCompleted, DueMillis: millisPtr(past)}, now)
	if got != model.StatusCompleted {
		t.Errorf("status = %q, want %q", got, model.StatusCompleted)
	}
}

func TestComputeStatusNoDueDate(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	got := ComputeStatus(model.Task{Status: model.StatusOverdue}, now)
	if got != model.StatusUpcoming {
		t.Errorf("status = %q, want %q", got, model.StatusUpcoming)
	}
}

func TestComputeStatusDueToday(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		due  time.Time
	}{
		{"later today", time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)},
		{"earlier today", time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)},
		{"start of today", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"end of today", time.Date(2026, 3, 15, 23, 59, 59, 0, time.UTC)},
	}
	for _, tt := range tests {
		got := ComputeStatus(model.Task{Status: model.StatusUpcoming, DueMillis: millisPtr(tt.due.UnixMilli())}, now)
		if got != model.StatusDueToday {
			t.Errorf("%s: status = %q, want %q", tt.name, got, model.StatusDueToday)
		}
	}
}

func TestComputeStatusOverdue(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	yesterday := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)

	got := ComputeStatus(model.Task{Status: model.StatusUpcoming, DueMillis: millisPtr(yesterday.UnixMilli())}, now)
	if got != model.StatusOverdue {
		t.Errorf("status = %q, want %q", got, model.StatusOverdue)
	}
}

func TestComputeStatusUpcoming(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	tomorrow := time.Date(2026, 3, 16, 0, 0, 1, 0, time.UTC)

	got := ComputeStatus(model.Task{Status: model.StatusUpcoming, DueMillis: millisPtr(tomorrow.UnixMilli())}, now)
	if got != model.StatusUpcoming {
		t.Errorf("status = %q, want %q", got, model.StatusUpcoming)
	}
}

func TestComputeStatusYearBoundary(t *testing.T) {
	// Same day-of-year in a different year must not read as today.
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	lastYear := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	got := ComputeStatus(model.Task{Status: model.StatusUpcoming, DueMillis: millisPtr(lastYear.UnixMilli())}, now)
	if got != model.StatusOverdue {
		t.Errorf("status = %q, want %q", got, model.StatusOverdue)
	}
}

func setupSweepTestDB(t *testing.T) (*store.TaskStore, *store.HouseholdStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewTaskStore(db), store.NewHouseholdStore(db)
}

func TestSweepUpdatesOnlyChangedRows(t *testing.T) {
	ts, hs := setupSweepTestDB(t)
	h, _ := hs.Create("Smith Family", "smith@example.com", "hash", "salt")

	now := time.Now()
	past := now.Add(-48 * time.Hour).UnixMilli()
	future := now.Add(72 * time.Hour).UnixMilli()

	stale, _ := ts.Create(model.Task{Title: "Stale", DueMillis: millisPtr(past), Priority: model.PriorityLow, HouseholdID: h.ID, Status: model.StatusUpcoming})
	fresh, _ := ts.Create(model.Task{Title: "Fresh", DueMillis: millisPtr(future), Priority: model.PriorityLow, HouseholdID: h.ID, Status: model.StatusUpcoming})
	done, _ := ts.Create(model.Task{Title: "Done", DueMillis: millisPtr(past), Priority: model.PriorityLow, HouseholdID: h.ID, Status: model.StatusCompleted})

	n, err := Sweep(ts, h.ID, now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("updated = %d, want 1", n)
	}

	got, _ := ts.GetByID(stale.ID)
	if got.Status != model.StatusOverdue {
		t.Errorf("stale status = %q, want %q", got.Status, model.StatusOverdue)
	}
	got, _ = ts.GetByID(fresh.ID)
	if got.Status != model.StatusUpcoming {
		t.Errorf("fresh status = %q, want %q", got.Status, model.StatusUpcoming)
	}
	got, _ = ts.GetByID(done.ID)
	if got.Status != model.StatusCompleted {
		t.Errorf("done status = %q, want %q", got.Status, model.StatusCompleted)
	}
}

func TestSweepIdempotent(t *testing.T) {
	ts, hs := setupSweepTestDB(t)
	h, _ := hs.Create("Smith Family", "smith@example.com", "hash", "salt")

	now := time.Now()
	past := now.Add(-48 * time.Hour).UnixMilli()
	ts.Create(model.Task{Title: "Stale", DueMillis: millisPtr(past), Priority: model.PriorityLow, HouseholdID: h.ID, Status: model.StatusUpcoming})

	if _, err := Sweep(ts, h.ID, now); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	n, err := Sweep(ts, h.ID, now)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n != 0 {
		t.Errorf("second sweep updated = %d, want 0", n)
	}
}
