package task

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/avelar/hometask/internal/store"
)

// Sweep recomputes the status of every non-completed task in the
// household and persists only the rows that changed. Returns the number
// of rows written.
func Sweep(tasks *store.TaskStore, householdID int64, now time.Time) (int, error) {
	open, err := tasks.ListIncompleteByHousehold(householdID)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, t := range open {
		status := ComputeStatus(t, now)
		if status == t.Status {
			continue
		}
		if err := tasks.UpdateStatus(t.ID, status); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// Sweeper runs periodic status sweeps across all households, so DUE_TODAY
// and OVERDUE flip at midnight without any client activity.
type Sweeper struct {
	tasks      *store.TaskStore
	households *store.HouseholdStore
	cron       *cron.Cron
	logger     *slog.Logger
	now        func() time.Time
}

func NewSweeper(tasks *store.TaskStore, households *store.HouseholdStore, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		tasks:      tasks,
		households: households,
		cron:       cron.New(),
		logger:     logger,
		now:        time.Now,
	}
}

// Start schedules sweeps at midnight (the status boundary) and every 30
// minutes as a catch-up for clock drift and missed runs.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc("@midnight", s.sweepAll); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@every 30m", s.sweepAll); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("status sweeper started")
	return nil
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("status sweeper stopped")
}

func (s *Sweeper) sweepAll() {
	ids, err := s.households.ListIDs()
	if err != nil {
		s.logger.Error("sweep: list households", "error", err)
		return
	}

	now := s.now()
	total := 0
	for _, id := range ids {
		n, err := Sweep(s.tasks, id, now)
		if err != nil {
			s.logger.Error("sweep household", "household_id", id, "error", err)
			continue
		}
		total += n
	}
	if total > 0 {
		s.logger.Info("status sweep", "updated", total)
	}
}
