package model

import "time"

type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

type RecurringInterval string

const (
	RecurDaily   RecurringInterval = "DAILY"
	RecurWeekly  RecurringInterval = "WEEKLY"
	RecurMonthly RecurringInterval = "MONTHLY"
	RecurYearly  RecurringInterval = "YEARLY"
)

type TaskStatus string

const (
	StatusUpcoming  TaskStatus = "UPCOMING"
	StatusDueToday  TaskStatus = "DUE_TODAY"
	StatusOverdue   TaskStatus = "OVERDUE"
	StatusCompleted TaskStatus = "COMPLETED"
)

type Task struct {
	ID                int64             `json:"id"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	DueMillis         *int64            `json:"due_millis"`
	Priority          TaskPriority      `json:"priority"`
	AssigneeID        *int64            `json:"assignee_id"`
	IsRecurring       bool              `json:"is_recurring"`
	RecurringInterval RecurringInterval `json:"recurring_interval"`
	HouseholdID       int64             `json:"household_id"`
	RemoteID          string            `json:"remote_id"`
	RemoteHouseholdID string            `json:"remote_household_id"`
	Status            TaskStatus        `json:"status"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
