// Package reminder schedules due-date notifications for tasks: one at
// the due time and one 24 hours before. Reminders live in process
// memory; restarting the server drops them until the next mutation or
// sweep reschedules.
package reminder

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avelar/hometask/internal/model"
	"github.com/avelar/hometask/internal/store"
)

const dayBefore = 24 * time.Hour

type kind string

const (
	kindDue       kind = "due"
	kindDayBefore kind = "day_before"
)

// Notifier delivers a fired reminder to the household's devices.
type Notifier interface {
	Notify(householdID, taskID int64, title, body string)
}

// Prefs gates reminders on the household notification preference.
type Prefs interface {
	NotificationsEnabled(householdID int64) (bool, error)
}

type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer

	tasks    *store.TaskStore
	prefs    Prefs
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewScheduler(tasks *store.TaskStore, prefs Prefs, notifier Notifier, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		timers:   make(map[string]*time.Timer),
		tasks:    tasks,
		prefs:    prefs,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Schedule sets both reminders for a task, replacing any previous ones.
// When the household has notifications off, nothing is scheduled.
// Reminder times already in the past are skipped, not fired immediately.
func (s *Scheduler) Schedule(householdID, taskID, dueMillis int64) {
	enabled, err := s.prefs.NotificationsEnabled(householdID)
	if err != nil {
		s.logger.Error("read notification preference", "household_id", householdID, "error", err)
		return
	}
	if !enabled {
		return
	}

	s.Cancel(taskID)

	due := time.UnixMilli(dueMillis)
	s.schedule(householdID, taskID, kindDue, due)
	s.schedule(householdID, taskID, kindDayBefore, due.Add(-dayBefore))
}

func (s *Scheduler) schedule(householdID, taskID int64, k kind, at time.Time) {
	delay := at.Sub(s.now())
	if delay <= 0 {
		return
	}

	key := timerKey(taskID, k)
	timer := time.AfterFunc(delay, func() {
		s.fire(householdID, taskID, k, key)
	})

	s.mu.Lock()
	s.timers[key] = timer
	s.mu.Unlock()
}

func (s *Scheduler) fire(householdID, taskID int64, k kind, key string) {
	s.mu.Lock()
	delete(s.timers, key)
	s.mu.Unlock()

	// The task may have been completed or deleted since scheduling.
	t, err := s.tasks.GetByID(taskID)
	if err != nil {
		s.logger.Error("reminder task lookup", "task_id", taskID, "error", err)
		return
	}
	if t == nil || t.Status == model.StatusCompleted {
		return
	}

	body := "Due now"
	if k == kindDayBefore {
		body = "Due tomorrow"
	}
	s.notifier.Notify(householdID, taskID, t.Title, body)
}

// SyncHousehold aligns timers with the household's current preference:
// arms reminders for every incomplete task with a due date when
// notifications are on, cancels them when off. Called at startup and
// when the preference changes.
func (s *Scheduler) SyncHousehold(householdID int64) error {
	enabled, err := s.prefs.NotificationsEnabled(householdID)
	if err != nil {
		return fmt.Errorf("read notification preference: %w", err)
	}

	tasks, err := s.tasks.ListIncompleteByHousehold(householdID)
	if err != nil {
		return fmt.Errorf("list incomplete tasks: %w", err)
	}

	for _, t := range tasks {
		if enabled && t.DueMillis != nil {
			s.Schedule(householdID, t.ID, *t.DueMillis)
		} else {
			s.Cancel(t.ID)
		}
	}
	return nil
}

// Cancel stops both pending reminders for the task, if any.
func (s *Scheduler) Cancel(taskID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range []kind{kindDue, kindDayBefore} {
		key := timerKey(taskID, k)
		if timer, ok := s.timers[key]; ok {
			timer.Stop()
			delete(s.timers, key)
		}
	}
}

// Stop cancels every pending reminder.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}

// Pending returns the number of armed reminder timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func timerKey(taskID int64, k kind) string {
	return fmt.Sprintf("%d/%s", taskID, k)
}
