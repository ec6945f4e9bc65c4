// Package feed keeps the household activity feed: an in-memory,
// newest-first event list mirrored through the remote store. Nothing is
// persisted locally; the remote copy is the durable one.
package feed

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/avelar/hometask/internal/model"
)

// dedupeWindow suppresses bursts of identical events, e.g. a double-tap
// on the complete button.
const dedupeWindow = 5 * time.Second

const defaultPollInterval = 15 * time.Second

type dedupeKey struct {
	eventType model.EventType
	taskTitle string
	actorName string
}

// Pusher is the slice of the remote client the feed needs.
type Pusher interface {
	PushFeedEvent(ctx context.Context, householdKey string, ev model.FeedEvent) error
	FeedEvents(ctx context.Context, householdKey string) ([]model.FeedEvent, error)
}

// Log holds feeds for every household the server is serving, keyed by
// the household's remote key.
type Log struct {
	mu       sync.RWMutex
	events   map[string][]model.FeedEvent
	lastSeen map[dedupeKey]int64
	watchers map[string]context.CancelFunc

	remote   Pusher
	interval time.Duration
	onChange func(householdKey string, events []model.FeedEvent)
	logger   *slog.Logger
	now      func() time.Time
}

func New(remote Pusher, logger *slog.Logger) *Log {
	return &Log{
		events:   make(map[string][]model.FeedEvent),
		lastSeen: make(map[dedupeKey]int64),
		watchers: make(map[string]context.CancelFunc),
		remote:   remote,
		interval: defaultPollInterval,
		logger:   logger,
		now:      time.Now,
	}
}

// OnChange registers a callback invoked whenever a household's feed is
// replaced by a remote snapshot. Must be set before Subscribe.
func (l *Log) OnChange(fn func(householdKey string, events []model.FeedEvent)) {
	l.onChange = fn
}

// Record adds an event to the household's feed and mirrors it to the
// remote store. A duplicate (same type, title, actor) within the dedupe
// window is dropped. Returns whether the event was recorded.
//
// The remote push is fire-and-forget: failure is logged and the event
// stays local until the next remote snapshot overwrites the list.
func (l *Log) Record(ctx context.Context, householdKey string, eventType model.EventType, taskTitle, actorName string) bool {
	nowMillis := l.now().UnixMilli()
	key := dedupeKey{eventType, taskTitle, actorName}

	l.mu.Lock()
	if last, ok := l.lastSeen[key]; ok && nowMillis-last < dedupeWindow.Milliseconds() {
		l.mu.Unlock()
		return false
	}
	l.lastSeen[key] = nowMillis
	l.pruneLocked(nowMillis)

	ev := model.FeedEvent{
		Timestamp: nowMillis,
		TaskTitle: taskTitle,
		ActorName: actorName,
		EventType: eventType,
	}
	if householdKey != "" {
		l.events[householdKey] = append([]model.FeedEvent{ev}, l.events[householdKey]...)
	}
	l.mu.Unlock()

	if householdKey != "" {
		if err := l.remote.PushFeedEvent(ctx, householdKey, ev); err != nil {
			l.logger.Warn("remote push feed event failed", "error", err)
		}
	}
	return true
}

// pruneLocked drops dedupe entries too old to suppress anything.
func (l *Log) pruneLocked(nowMillis int64) {
	for k, seen := range l.lastSeen {
		if nowMillis-seen >= dedupeWindow.Milliseconds() {
			delete(l.lastSeen, k)
		}
	}
}

// Events returns a copy of the household's feed, newest first.
func (l *Log) Events(householdKey string) []model.FeedEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	events := l.events[householdKey]
	out := make([]model.FeedEvent, len(events))
	copy(out, events)
	return out
}

// Subscribe starts polling the household's remote feed. Each snapshot
// replaces the in-memory list wholesale. A second Subscribe for the same
// household is a no-op; Unsubscribe stops the watcher.
func (l *Log) Subscribe(ctx context.Context, householdKey string) {
	if householdKey == "" {
		return
	}

	l.mu.Lock()
	if _, running := l.watchers[householdKey]; running {
		l.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	l.watchers[householdKey] = cancel
	l.mu.Unlock()

	go l.watch(ctx, householdKey)
}

func (l *Log) Unsubscribe(householdKey string) {
	l.mu.Lock()
	cancel, ok := l.watchers[householdKey]
	if ok {
		delete(l.watchers, householdKey)
	}
	l.mu.Unlock()
	if ok {
		cancel()
	}
}

// Close stops all watchers.
func (l *Log) Close() {
	l.mu.Lock()
	for key, cancel := range l.watchers {
		delete(l.watchers, key)
		cancel()
	}
	l.mu.Unlock()
}

func (l *Log) watch(ctx context.Context, householdKey string) {
	l.refresh(ctx, householdKey)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.refresh(ctx, householdKey)
		case <-ctx.Done():
			return
		}
	}
}

// refresh swaps in the latest remote snapshot, sorted newest first.
func (l *Log) refresh(ctx context.Context, householdKey string) {
	events, err := l.remote.FeedEvents(ctx, householdKey)
	if err != nil {
		l.logger.Warn("fetch remote feed failed", "error", err)
		return
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp > events[j].Timestamp
	})

	l.mu.Lock()
	l.events[householdKey] = events
	l.mu.Unlock()

	if l.onChange != nil {
		l.onChange(householdKey, events)
	}
}
