package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/avelar/hometask/internal/auth"
	"github.com/avelar/hometask/internal/model"
	"github.com/avelar/hometask/internal/store"
	"github.com/avelar/hometask/internal/syncer"
	"github.com/avelar/hometask/internal/websocket"
)

type TaskHandler struct {
	engine    *syncer.Engine
	taskStore *store.TaskStore
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewTaskHandler(engine *syncer.Engine, ts *store.TaskStore, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{engine: engine, taskStore: ts, hub: hub, logger: logger}
}

func (h *TaskHandler) broadcast(householdID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, msg)
	}
}

type taskRequest struct {
	Title             string                  `json:"title"`
	Description       string                  `json:"description"`
	DueMillis         *int64                  `json:"due_millis"`
	Priority          model.TaskPriority      `json:"priority"`
	AssigneeID        *int64                  `json:"assignee_id"`
	IsRecurring       bool                    `json:"is_recurring"`
	RecurringInterval model.RecurringInterval `json:"recurring_interval"`
}

// List handles GET /api/tasks. Optional filters: ?assignee_id=N and
// ?incomplete=true.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	var (
		tasks []model.Task
		err   error
	)
	switch {
	case r.URL.Query().Get("assignee_id") != "":
		var assigneeID int64
		assigneeID, err = strconv.ParseInt(r.URL.Query().Get("assignee_id"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid assignee_id"})
			return
		}
		tasks, err = h.taskStore.ListByAssignee(householdID, assigneeID)
	case r.URL.Query().Get("incomplete") == "true":
		tasks, err = h.taskStore.ListIncompleteByHousehold(householdID)
	default:
		tasks, err = h.taskStore.ListByHousehold(householdID)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Create handles POST /api/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	task, err := h.engine.AddTask(r.Context(), householdID, actorID(r), syncer.TaskDraft{
		Title:             req.Title,
		Description:       req.Description,
		DueMillis:         req.DueMillis,
		Priority:          req.Priority,
		AssigneeID:        req.AssigneeID,
		IsRecurring:       req.IsRecurring,
		RecurringInterval: req.RecurringInterval,
	})
	switch {
	case errors.Is(err, syncer.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("add task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create task"})
		return
	}

	h.broadcast(householdID, websocket.NewMessage("task", "created", task.ID))

	writeJSON(w, http.StatusCreated, task)
}

// Update handles PUT /api/tasks/{id}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	existing, ok := h.ownedTask(w, r, householdID)
	if !ok {
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	existing.Title = req.Title
	existing.Description = req.Description
	existing.DueMillis = req.DueMillis
	existing.Priority = req.Priority
	existing.AssigneeID = req.AssigneeID
	existing.IsRecurring = req.IsRecurring
	existing.RecurringInterval = req.RecurringInterval

	task, err := h.engine.UpdateTask(r.Context(), *existing, actorID(r))
	switch {
	case errors.Is(err, syncer.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("update task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update task"})
		return
	}

	h.broadcast(householdID, websocket.NewMessage("task", "updated", task.ID))

	writeJSON(w, http.StatusOK, task)
}

// Complete handles POST /api/tasks/{id}/complete
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	existing, ok := h.ownedTask(w, r, householdID)
	if !ok {
		return
	}

	task, err := h.engine.MarkTaskCompleted(r.Context(), existing.ID, actorID(r))
	if err != nil {
		h.logger.Error("complete task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to complete task"})
		return
	}

	h.broadcast(householdID, websocket.NewMessage("task", "completed", task.ID))

	writeJSON(w, http.StatusOK, task)
}

// Delete handles DELETE /api/tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	existing, ok := h.ownedTask(w, r, householdID)
	if !ok {
		return
	}

	if err := h.engine.DeleteTask(r.Context(), existing.ID, actorID(r)); err != nil {
		h.logger.Error("delete task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete task"})
		return
	}

	h.broadcast(householdID, websocket.NewMessage("task", "deleted", existing.ID))

	w.WriteHeader(http.StatusNoContent)
}

// Sync handles POST /api/sync: pull remote people and tasks, then
// recompute statuses.
func (h *TaskHandler) Sync(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	if err := h.engine.PullHousehold(r.Context(), householdID); err != nil {
		h.logger.Error("pull household", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "sync failed"})
		return
	}

	changed, err := h.engine.SweepStatuses(r.Context(), householdID)
	if err != nil {
		h.logger.Error("sweep statuses", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "status sweep failed"})
		return
	}

	h.broadcast(householdID, websocket.NewMessage("household", "synced", householdID))

	writeJSON(w, http.StatusOK, map[string]int{"statuses_changed": changed})
}

func (h *TaskHandler) ownedTask(w http.ResponseWriter, r *http.Request, householdID int64) (*model.Task, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}

	task, err := h.taskStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return nil, false
	}
	if task == nil || task.HouseholdID != householdID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return nil, false
	}
	return task, true
}

// actorID reads the optional X-Person-ID header identifying which
// household member performed the action, for feed attribution.
func actorID(r *http.Request) int64 {
	id, err := strconv.ParseInt(r.Header.Get("X-Person-ID"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
