// Package syncer owns the write path of the app: every mutation lands in
// the local store first, then mirrors to the remote store best-effort.
// The local store is authoritative; remote failures are logged and the
// row is reconciled by a later pull.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/avelar/hometask/internal/auth"
	"github.com/avelar/hometask/internal/model"
	"github.com/avelar/hometask/internal/remote"
	"github.com/avelar/hometask/internal/store"
	"github.com/avelar/hometask/internal/task"
)

var (
	// ErrDuplicate: the household name/email or person name is taken.
	ErrDuplicate = errors.New("name already taken")
	// ErrNotFound: the referenced household, person, or task does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials covers both unknown names and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation: a required field is blank or malformed.
	ErrValidation = errors.New("validation failed")
)

// Remote is the slice of the cloud client the engine depends on.
type Remote interface {
	PushHousehold(ctx context.Context, rec remote.HouseholdRecord) (string, error)
	HouseholdsByName(ctx context.Context, name string) (map[string]remote.HouseholdRecord, error)
	PushPerson(ctx context.Context, rec remote.PersonRecord) (string, error)
	SetPerson(ctx context.Context, key string, rec remote.PersonRecord) error
	DeletePerson(ctx context.Context, key string) error
	PeopleByHousehold(ctx context.Context, householdKey string) (map[string]remote.PersonRecord, error)
	PushTask(ctx context.Context, rec remote.TaskRecord) (string, error)
	SetTask(ctx context.Context, key string, rec remote.TaskRecord) error
	DeleteTask(ctx context.Context, key string) error
	TasksByHousehold(ctx context.Context, householdKey string) (map[string]remote.TaskRecord, error)
}

// FeedRecorder receives activity events for the household feed.
type FeedRecorder interface {
	Record(ctx context.Context, householdRemoteID string, eventType model.EventType, taskTitle, actorName string) bool
}

// ReminderScheduler manages due-date reminders for tasks.
type ReminderScheduler interface {
	Schedule(householdID, taskID, dueMillis int64)
	Cancel(taskID int64)
}

// TaskDraft carries the user-editable task fields into AddTask.
type TaskDraft struct {
	Title             string
	Description       string
	DueMillis         *int64
	Priority          model.TaskPriority
	AssigneeID        *int64
	IsRecurring       bool
	RecurringInterval model.RecurringInterval
}

type Engine struct {
	households *store.HouseholdStore
	people     *store.PersonStore
	tasks      *store.TaskStore
	settings   *store.SettingsStore
	remote     Remote
	mapper     *Mapper
	feed       FeedRecorder
	reminders  ReminderScheduler
	logger     *slog.Logger
	now        func() time.Time
}

func NewEngine(
	households *store.HouseholdStore,
	people *store.PersonStore,
	tasks *store.TaskStore,
	settings *store.SettingsStore,
	rc Remote,
	feed FeedRecorder,
	reminders ReminderScheduler,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		households: households,
		people:     people,
		tasks:      tasks,
		settings:   settings,
		remote:     rc,
		mapper:     NewMapper(households, people),
		feed:       feed,
		reminders:  reminders,
		logger:     logger,
		now:        time.Now,
	}
}

// --- households ---

// RegisterHousehold creates a household locally and mirrors it to the
// remote store. The remote leg is best-effort: on failure the household
// stays local-only and the mirror is retried at the next login.
func (e *Engine) RegisterHousehold(ctx context.Context, name, email, password string) (*model.Household, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name and email are required", ErrValidation)
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	existing, err := e.households.GetByNameOrEmail(name, email)
	if err != nil {
		return nil, fmt.Errorf("check existing household: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicate
	}

	salt, err := auth.GenerateSalt()
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password, salt)
	if err != nil {
		return nil, err
	}

	h, err := e.households.Create(name, email, hash, salt)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	if err := e.settings.SeedDefaults(h.ID); err != nil {
		return nil, fmt.Errorf("seed settings: %w", err)
	}

	e.pushHousehold(ctx, h)
	return e.households.GetByID(h.ID)
}

// pushHousehold mirrors a local-only household and records the assigned key.
func (e *Engine) pushHousehold(ctx context.Context, h *model.Household) {
	key, err := e.remote.PushHousehold(ctx, remote.HouseholdRecord{
		Name:         h.Name,
		Email:        h.Email,
		PasswordHash: h.PasswordHash,
		Salt:         h.Salt,
	})
	if err != nil {
		e.logger.Warn("remote push household failed", "household_id", h.ID, "error", err)
		return
	}
	if err := e.households.SetRemoteID(h.ID, key); err != nil {
		e.logger.Error("record household remote id", "household_id", h.ID, "error", err)
	}
}

// Authenticate verifies credentials against the local store, falling
// back to a remote lookup for households registered on another device.
// A remote match is imported locally so the next login is offline.
func (e *Engine) Authenticate(ctx context.Context, name, password string) (*model.Household, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	h, err := e.households.GetByName(name)
	if err != nil {
		return nil, fmt.Errorf("lookup household: %w", err)
	}
	if h != nil {
		if !auth.VerifyPassword(password, h.Salt, h.PasswordHash) {
			return nil, ErrInvalidCredentials
		}
		// A household that registered while the remote store was
		// unreachable gets another chance to mirror here.
		if !h.Synced() {
			e.pushHousehold(ctx, h)
			h, _ = e.households.GetByID(h.ID)
		}
		e.rememberLogin(h.ID, name, password)
		return h, nil
	}

	return e.authenticateRemote(ctx, name, password)
}

func (e *Engine) authenticateRemote(ctx context.Context, name, password string) (*model.Household, error) {
	records, err := e.remote.HouseholdsByName(ctx, name)
	if err != nil {
		e.logger.Warn("remote household lookup failed", "error", err)
		return nil, ErrInvalidCredentials
	}

	for key, rec := range records {
		if !auth.VerifyPassword(password, rec.Salt, rec.PasswordHash) {
			continue
		}
		h, err := e.households.Create(rec.Name, rec.Email, rec.PasswordHash, rec.Salt)
		if errors.Is(err, store.ErrDuplicate) {
			// Lost a race with a concurrent import of the same household.
			h, err = e.households.GetByName(rec.Name)
			if err != nil || h == nil {
				return nil, ErrInvalidCredentials
			}
		} else if err != nil {
			return nil, fmt.Errorf("import household: %w", err)
		}
		if err := e.households.SetRemoteID(h.ID, key); err != nil {
			return nil, err
		}
		if err := e.settings.SeedDefaults(h.ID); err != nil {
			return nil, fmt.Errorf("seed settings: %w", err)
		}
		e.rememberLogin(h.ID, name, password)
		return e.households.GetByID(h.ID)
	}
	return nil, ErrInvalidCredentials
}

func (e *Engine) rememberLogin(householdID int64, name, password string) {
	if err := e.settings.SetRememberMe(householdID, name, password); err != nil {
		e.logger.Error("store remember-me", "household_id", householdID, "error", err)
	}
}

// Logout clears the remember-me credential. Session teardown is the
// HTTP layer's job.
func (e *Engine) Logout(ctx context.Context, householdID int64) error {
	return e.settings.ClearRememberMe(householdID)
}

// --- people ---

func (e *Engine) AddPerson(ctx context.Context, householdID int64, name string) (*model.Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: person name is required", ErrValidation)
	}

	h, err := e.households.GetByID(householdID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("%w: household %d", ErrNotFound, householdID)
	}

	p, err := e.people.Create(name, h.ID)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}

	key, err := e.remote.PushPerson(ctx, remote.PersonRecord{Name: p.Name, HouseholdID: h.RemoteID})
	if err != nil {
		e.logger.Warn("remote push person failed", "person_id", p.ID, "error", err)
		return p, nil
	}
	if err := e.people.SetRemote(p.ID, key, h.RemoteID); err != nil {
		e.logger.Error("record person remote id", "person_id", p.ID, "error", err)
		return p, nil
	}
	return e.people.GetByID(p.ID)
}

func (e *Engine) UpdatePerson(ctx context.Context, personID int64, name string) (*model.Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: person name is required", ErrValidation)
	}

	p, err := e.people.GetByID(personID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: person %d", ErrNotFound, personID)
	}

	updated, err := e.people.UpdateName(p.ID, name)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}

	if updated.RemoteID != "" {
		rec := remote.PersonRecord{Name: updated.Name, HouseholdID: updated.RemoteHouseholdID}
		if err := e.remote.SetPerson(ctx, updated.RemoteID, rec); err != nil {
			e.logger.Warn("remote update person failed", "person_id", updated.ID, "error", err)
		}
	}
	return updated, nil
}

// DeletePerson removes a person locally and from the remote store. Tasks
// assigned to them fall back to unassigned via the schema.
func (e *Engine) DeletePerson(ctx context.Context, personID int64) error {
	p, err := e.people.GetByID(personID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: person %d", ErrNotFound, personID)
	}

	if err := e.people.Delete(p.ID); err != nil {
		return err
	}

	if p.RemoteID != "" {
		if err := e.remote.DeletePerson(ctx, p.RemoteID); err != nil {
			e.logger.Warn("remote delete person failed", "person_id", p.ID, "error", err)
		}
	}
	return nil
}

// --- tasks ---

func (e *Engine) AddTask(ctx context.Context, householdID, actorPersonID int64, draft TaskDraft) (*model.Task, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return nil, fmt.Errorf("%w: task title is required", ErrValidation)
	}

	h, err := e.households.GetByID(householdID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("%w: household %d", ErrNotFound, householdID)
	}

	t := model.Task{
		Title:             strings.TrimSpace(draft.Title),
		Description:       draft.Description,
		DueMillis:         draft.DueMillis,
		Priority:          draft.Priority,
		AssigneeID:        draft.AssigneeID,
		IsRecurring:       draft.IsRecurring,
		RecurringInterval: draft.RecurringInterval,
		HouseholdID:       h.ID,
	}
	if t.Priority == "" {
		t.Priority = model.PriorityLow
	}
	t.Status = task.ComputeStatus(t, e.now())

	created, err := e.tasks.Create(t)
	if err != nil {
		return nil, err
	}

	key, err := e.remote.PushTask(ctx, e.taskRecord(created, h.RemoteID))
	if err != nil {
		e.logger.Warn("remote push task failed", "task_id", created.ID, "error", err)
	} else if err := e.tasks.SetRemote(created.ID, key, h.RemoteID); err != nil {
		e.logger.Error("record task remote id", "task_id", created.ID, "error", err)
	} else {
		created, err = e.tasks.GetByID(created.ID)
		if err != nil {
			return nil, err
		}
	}

	if created.DueMillis != nil {
		e.reminders.Schedule(h.ID, created.ID, *created.DueMillis)
	}
	e.feed.Record(ctx, h.RemoteID, model.EventCreated, created.Title, e.actorName(actorPersonID))
	return created, nil
}

func (e *Engine) UpdateTask(ctx context.Context, t model.Task, actorPersonID int64) (*model.Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return nil, fmt.Errorf("%w: task title is required", ErrValidation)
	}

	existing, err := e.tasks.GetByID(t.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: task %d", ErrNotFound, t.ID)
	}

	t.HouseholdID = existing.HouseholdID
	t.RemoteID = existing.RemoteID
	t.RemoteHouseholdID = existing.RemoteHouseholdID
	if t.Status != model.StatusCompleted {
		t.Status = task.ComputeStatus(t, e.now())
	}

	updated, err := e.tasks.Update(t)
	if err != nil {
		return nil, err
	}

	e.mirrorTask(ctx, updated)

	e.reminders.Cancel(updated.ID)
	if updated.DueMillis != nil && updated.Status != model.StatusCompleted {
		e.reminders.Schedule(updated.HouseholdID, updated.ID, *updated.DueMillis)
	}
	e.feed.Record(ctx, updated.RemoteHouseholdID, model.EventModified, updated.Title, e.actorName(actorPersonID))
	return updated, nil
}

// MarkTaskCompleted sets the sticky completed status; no sweep or update
// ever reopens the task.
func (e *Engine) MarkTaskCompleted(ctx context.Context, taskID, actorPersonID int64) (*model.Task, error) {
	existing, err := e.tasks.GetByID(taskID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: task %d", ErrNotFound, taskID)
	}

	existing.Status = model.StatusCompleted
	updated, err := e.tasks.Update(*existing)
	if err != nil {
		return nil, err
	}

	e.mirrorTask(ctx, updated)
	e.reminders.Cancel(updated.ID)
	e.feed.Record(ctx, updated.RemoteHouseholdID, model.EventCompleted, updated.Title, e.actorName(actorPersonID))
	return updated, nil
}

func (e *Engine) DeleteTask(ctx context.Context, taskID, actorPersonID int64) error {
	existing, err := e.tasks.GetByID(taskID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: task %d", ErrNotFound, taskID)
	}

	e.reminders.Cancel(existing.ID)
	if err := e.tasks.Delete(existing.ID); err != nil {
		return err
	}

	if existing.RemoteID != "" {
		if err := e.remote.DeleteTask(ctx, existing.RemoteID); err != nil {
			e.logger.Warn("remote delete task failed", "task_id", existing.ID, "error", err)
		}
	}
	e.feed.Record(ctx, existing.RemoteHouseholdID, model.EventDeleted, existing.Title, e.actorName(actorPersonID))
	return nil
}

// mirrorTask writes a task's current state to the remote store, or
// creates the remote record if the original push failed.
func (e *Engine) mirrorTask(ctx context.Context, t *model.Task) {
	householdRemoteID := t.RemoteHouseholdID
	if householdRemoteID == "" {
		h, err := e.households.GetByID(t.HouseholdID)
		if err == nil && h != nil {
			householdRemoteID = h.RemoteID
		}
	}
	rec := e.taskRecord(t, householdRemoteID)

	if t.RemoteID == "" {
		key, err := e.remote.PushTask(ctx, rec)
		if err != nil {
			e.logger.Warn("remote push task failed", "task_id", t.ID, "error", err)
			return
		}
		if err := e.tasks.SetRemote(t.ID, key, householdRemoteID); err != nil {
			e.logger.Error("record task remote id", "task_id", t.ID, "error", err)
		}
		t.RemoteID = key
		t.RemoteHouseholdID = householdRemoteID
		return
	}

	if err := e.remote.SetTask(ctx, t.RemoteID, rec); err != nil {
		e.logger.Warn("remote update task failed", "task_id", t.ID, "error", err)
	}
}

func (e *Engine) taskRecord(t *model.Task, householdRemoteID string) remote.TaskRecord {
	assignee, err := e.mapper.RemoteAssigneeID(t.AssigneeID)
	if err != nil {
		e.logger.Warn("map assignee for push", "task_id", t.ID, "error", err)
		assignee = ""
	}
	return remote.TaskRecord{
		Title:             t.Title,
		Description:       t.Description,
		DueMillis:         t.DueMillis,
		Priority:          string(t.Priority),
		AssigneeID:        assignee,
		IsRecurring:       t.IsRecurring,
		RecurringInterval: string(t.RecurringInterval),
		HouseholdID:       householdRemoteID,
		Status:            string(t.Status),
	}
}

func (e *Engine) actorName(personID int64) string {
	if personID != 0 {
		p, err := e.people.GetByID(personID)
		if err == nil && p != nil {
			return p.Name
		}
	}
	return "Someone"
}

// --- pull ---

// PullHousehold fetches the household's remote people and tasks and
// upserts them locally. Local rows are never deleted here: a row missing
// remotely may simply not have pushed yet from its home device.
func (e *Engine) PullHousehold(ctx context.Context, householdID int64) error {
	h, err := e.households.GetByID(householdID)
	if err != nil {
		return err
	}
	if h == nil {
		return fmt.Errorf("%w: household %d", ErrNotFound, householdID)
	}
	if !h.Synced() {
		e.logger.Debug("pull skipped for unsynced household", "household_id", h.ID)
		return nil
	}

	var wg sync.WaitGroup
	var peopleErr, tasksErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		peopleErr = e.pullPeople(ctx, h)
	}()
	go func() {
		defer wg.Done()
		tasksErr = e.pullTasks(ctx, h)
	}()
	wg.Wait()

	if peopleErr != nil {
		return peopleErr
	}
	return tasksErr
}

func (e *Engine) pullPeople(ctx context.Context, h *model.Household) error {
	records, err := e.remote.PeopleByHousehold(ctx, h.RemoteID)
	if err != nil {
		return fmt.Errorf("fetch remote people: %w", err)
	}

	for key, rec := range records {
		localID, err := e.mapper.LocalHouseholdID(rec.HouseholdID, h.ID)
		if err != nil {
			return err
		}

		local, err := e.people.GetByRemoteID(key)
		if err != nil {
			return err
		}
		if local == nil {
			// A person created here before syncing has no remote key yet;
			// match by name within the household and adopt the key.
			local, err = e.people.GetByNameAndHousehold(rec.Name, localID)
			if err != nil {
				return err
			}
		}

		if local == nil {
			created, err := e.people.Create(rec.Name, localID)
			if errors.Is(err, store.ErrDuplicate) {
				e.logger.Warn("pull person collided with local name", "name", rec.Name, "remote_key", key)
				continue
			}
			if err != nil {
				return err
			}
			if err := e.people.SetRemote(created.ID, key, rec.HouseholdID); err != nil {
				return err
			}
			continue
		}

		if local.Name != rec.Name {
			if _, err := e.people.UpdateName(local.ID, rec.Name); err != nil && !errors.Is(err, store.ErrDuplicate) {
				return err
			}
		}
		if local.RemoteID != key || local.RemoteHouseholdID != rec.HouseholdID {
			if err := e.people.SetRemote(local.ID, key, rec.HouseholdID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) pullTasks(ctx context.Context, h *model.Household) error {
	records, err := e.remote.TasksByHousehold(ctx, h.RemoteID)
	if err != nil {
		return fmt.Errorf("fetch remote tasks: %w", err)
	}

	for key, rec := range records {
		localHousehold, err := e.mapper.LocalHouseholdID(rec.HouseholdID, h.ID)
		if err != nil {
			return err
		}
		assignee, err := e.mapper.LocalAssigneeID(rec.AssigneeID)
		if err != nil {
			return err
		}

		status := model.TaskStatus(rec.Status)
		if status == "" {
			status = model.StatusUpcoming
		}

		local, err := e.tasks.GetByRemoteID(key)
		if err != nil {
			return err
		}
		if local == nil {
			if _, err := e.tasks.Create(model.Task{
				Title:             rec.Title,
				Description:       rec.Description,
				DueMillis:         rec.DueMillis,
				Priority:          model.TaskPriority(rec.Priority),
				AssigneeID:        assignee,
				IsRecurring:       rec.IsRecurring,
				RecurringInterval: model.RecurringInterval(rec.RecurringInterval),
				HouseholdID:       localHousehold,
				RemoteID:          key,
				RemoteHouseholdID: rec.HouseholdID,
				Status:            status,
			}); err != nil {
				return err
			}
			continue
		}

		local.Title = rec.Title
		local.Description = rec.Description
		local.DueMillis = rec.DueMillis
		local.Priority = model.TaskPriority(rec.Priority)
		local.AssigneeID = assignee
		local.IsRecurring = rec.IsRecurring
		local.RecurringInterval = model.RecurringInterval(rec.RecurringInterval)
		local.Status = status
		if _, err := e.tasks.Update(*local); err != nil {
			return err
		}
	}
	return nil
}

// SweepStatuses recomputes display statuses for the household's open tasks.
func (e *Engine) SweepStatuses(ctx context.Context, householdID int64) (int, error) {
	return task.Sweep(e.tasks, householdID, e.now())
}
