package task

import (
	"time"

	"github.com/avelar/hometask/internal/model"
)

// ComputeStatus derives a task's display status from its due date.
//
// Completed tasks keep their status regardless of the clock. A task with
// no due date is always upcoming. A task due any time today counts as
// due-today even after its exact due time has passed; only a due date on
// an earlier calendar day is overdue. Calendar comparison uses now's
// location.
func ComputeStatus(t model.Task, now time.Time) model.TaskStatus {
	if t.Status == model.StatusCompleted {
		return model.StatusCompleted
	}
	if t.DueMillis == nil {
		return model.StatusUpcoming
	}

	due := time.UnixMilli(*t.DueMillis).In(now.Location())
	if sameDay(due, now) {
		return model.StatusDueToday
	}
	if due.Before(now) {
		return model.StatusOverdue
	}
	return model.StatusUpcoming
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
