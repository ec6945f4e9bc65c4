package model

type EventType string

const (
	EventCreated   EventType = "CREATED"
	EventModified  EventType = "MODIFIED"
	EventDeleted   EventType = "DELETED"
	EventCompleted EventType = "COMPLETED"
)

// FeedEvent is both the in-memory feed entry and the remote wire format,
// so the JSON tags follow the remote store's camelCase convention.
type FeedEvent struct {
	Timestamp int64     `json:"timestamp"`
	TaskTitle string    `json:"taskTitle"`
	ActorName string    `json:"userName"`
	EventType EventType `json:"eventType"`
}
