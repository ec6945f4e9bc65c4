package reminder

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/avelar/hometask/internal/database"
	"github.com/avelar/hometask/internal/model"
	"github.com/avelar/hometask/internal/store"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeNotifier) Notify(_, _ int64, title, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, title+": "+body)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeNotifier) first() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[0]
}

type fakePrefs struct {
	enabled bool
}

func (f *fakePrefs) NotificationsEnabled(int64) (bool, error) {
	return f.enabled, nil
}

func setupScheduler(t *testing.T) (*Scheduler, *fakeNotifier, *fakePrefs, *store.TaskStore, *model.Household) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hs := store.NewHouseholdStore(db)
	h, err := hs.Create("Smith Family", "smith@example.com", "hash", "salt")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}

	tasks := store.NewTaskStore(db)
	notifier := &fakeNotifier{}
	prefs := &fakePrefs{enabled: true}
	s := NewScheduler(tasks, prefs, notifier, slog.New(slog.DiscardHandler))
	t.Cleanup(s.Stop)
	return s, notifier, prefs, tasks, h
}

func createTask(t *testing.T, tasks *store.TaskStore, householdID int64, due time.Time) *model.Task {
	t.Helper()
	ms := due.UnixMilli()
	created, err := tasks.Create(model.Task{
		Title: "Dishes", DueMillis: &ms, Priority: model.PriorityLow,
		HouseholdID: householdID, Status: model.StatusUpcoming,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return created
}

func TestScheduleArmsBothReminders(t *testing.T) {
	s, _, _, tasks, h := setupScheduler(t)
	created := createTask(t, tasks, h.ID, time.Now().Add(48*time.Hour))

	s.Schedule(h.ID, created.ID, *created.DueMillis)
	if n := s.Pending(); n != 2 {
		t.Errorf("pending = %d, want 2 (due + day-before)", n)
	}
}

func TestScheduleSkipsPastTimes(t *testing.T) {
	s, notifier, _, tasks, h := setupScheduler(t)

	// Due within the day: the day-before reminder is already in the
	// past and must be skipped silently, not fired immediately.
	created := createTask(t, tasks, h.ID, time.Now().Add(2*time.Hour))
	s.Schedule(h.ID, created.ID, *created.DueMillis)
	if n := s.Pending(); n != 1 {
		t.Errorf("pending = %d, want 1", n)
	}

	// Entirely in the past: nothing armed, nothing fired.
	past := createTask(t, tasks, h.ID, time.Now().Add(-2*time.Hour))
	s.Schedule(h.ID, past.ID, *past.DueMillis)
	if n := s.Pending(); n != 1 {
		t.Errorf("pending after past task = %d, want 1", n)
	}
	if notifier.count() != 0 {
		t.Errorf("notified = %d, want 0", notifier.count())
	}
}

func TestScheduleRespectsPreference(t *testing.T) {
	s, _, prefs, tasks, h := setupScheduler(t)
	prefs.enabled = false

	created := createTask(t, tasks, h.ID, time.Now().Add(48*time.Hour))
	s.Schedule(h.ID, created.ID, *created.DueMillis)
	if n := s.Pending(); n != 0 {
		t.Errorf("pending = %d, want 0 with notifications off", n)
	}
}

func TestRescheduleReplacesPrevious(t *testing.T) {
	s, _, _, tasks, h := setupScheduler(t)
	created := createTask(t, tasks, h.ID, time.Now().Add(48*time.Hour))

	s.Schedule(h.ID, created.ID, *created.DueMillis)
	s.Schedule(h.ID, created.ID, time.Now().Add(72*time.Hour).UnixMilli())
	if n := s.Pending(); n != 2 {
		t.Errorf("pending = %d, want 2 after reschedule", n)
	}
}

func TestSyncHousehold(t *testing.T) {
	s, _, prefs, tasks, h := setupScheduler(t)
	createTask(t, tasks, h.ID, time.Now().Add(48*time.Hour))
	second := createTask(t, tasks, h.ID, time.Now().Add(72*time.Hour))
	tasks.UpdateStatus(second.ID, model.StatusCompleted)

	if err := s.SyncHousehold(h.ID); err != nil {
		t.Fatalf("sync household: %v", err)
	}
	if n := s.Pending(); n != 2 {
		t.Errorf("pending = %d, want 2 (incomplete task only)", n)
	}

	prefs.enabled = false
	if err := s.SyncHousehold(h.ID); err != nil {
		t.Fatalf("sync household: %v", err)
	}
	if n := s.Pending(); n != 0 {
		t.Errorf("pending = %d, want 0 with notifications off", n)
	}
}

func TestCancel(t *testing.T) {
	s, _, _, tasks, h := setupScheduler(t)
	created := createTask(t, tasks, h.ID, time.Now().Add(48*time.Hour))

	s.Schedule(h.ID, created.ID, *created.DueMillis)
	s.Cancel(created.ID)
	if n := s.Pending(); n != 0 {
		t.Errorf("pending = %d, want 0 after cancel", n)
	}
}

func TestFireDeliversNotification(t *testing.T) {
	s, notifier, _, tasks, h := setupScheduler(t)
	created := createTask(t, tasks, h.ID, time.Now().Add(48*time.Hour))

	// Arm a timer that fires almost immediately.
	s.schedule(h.ID, created.ID, kindDue, time.Now().Add(20*time.Millisecond))

	deadline := time.After(2 * time.Second)
	for notifier.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for notification")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	if got := notifier.first(); got != "Dishes: Due now" {
		t.Errorf("notification = %q", got)
	}
}

func TestFireSkipsCompletedTask(t *testing.T) {
	s, notifier, _, tasks, h := setupScheduler(t)
	created := createTask(t, tasks, h.ID, time.Now().Add(48*time.Hour))
	tasks.UpdateStatus(created.ID, model.StatusCompleted)

	s.schedule(h.ID, created.ID, kindDue, time.Now().Add(20*time.Millisecond))
	time.Sleep(200 * time.Millisecond)
	if notifier.count() != 0 {
		t.Errorf("notified = %d, want 0 for completed task", notifier.count())
	}
}
