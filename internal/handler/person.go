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

type PersonHandler struct {
	engine      *syncer.Engine
	personStore *store.PersonStore
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewPersonHandler(engine *syncer.Engine, ps *store.PersonStore, hub *websocket.Hub, logger *slog.Logger) *PersonHandler {
	return &PersonHandler{engine: engine, personStore: ps, hub: hub, logger: logger}
}

func (h *PersonHandler) broadcast(householdID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, msg)
	}
}

type personRequest struct {
	Name string `json:"name"`
}

// List handles GET /api/people
func (h *PersonHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	people, err := h.personStore.ListByHousehold(householdID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list people"})
		return
	}
	if people == nil {
		people = []model.Person{}
	}
	writeJSON(w, http.StatusOK, people)
}

// Create handles POST /api/people
func (h *PersonHandler) Create(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	person, err := h.engine.AddPerson(r.Context(), householdID, req.Name)
	switch {
	case errors.Is(err, syncer.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, syncer.ErrDuplicate):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a person with that name already exists"})
		return
	case err != nil:
		h.logger.Error("add person", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to add person"})
		return
	}

	h.broadcast(householdID, websocket.NewMessage("person", "created", person.ID))

	writeJSON(w, http.StatusCreated, person)
}

// Update handles PUT /api/people/{id}
func (h *PersonHandler) Update(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if !h.ownsPerson(w, id, householdID) {
		return
	}

	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	person, err := h.engine.UpdatePerson(r.Context(), id, req.Name)
	switch {
	case errors.Is(err, syncer.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, syncer.ErrDuplicate):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a person with that name already exists"})
		return
	case err != nil:
		h.logger.Error("update person", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update person"})
		return
	}

	h.broadcast(householdID, websocket.NewMessage("person", "updated", person.ID))

	writeJSON(w, http.StatusOK, person)
}

// Delete handles DELETE /api/people/{id}
func (h *PersonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if !h.ownsPerson(w, id, householdID) {
		return
	}

	if err := h.engine.DeletePerson(r.Context(), id); err != nil {
		h.logger.Error("delete person", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete person"})
		return
	}

	h.broadcast(householdID, websocket.NewMessage("person", "deleted", id))

	w.WriteHeader(http.StatusNoContent)
}

// ownsPerson writes the error response and returns false unless the
// person exists and belongs to the household.
func (h *PersonHandler) ownsPerson(w http.ResponseWriter, id, householdID int64) bool {
	person, err := h.personStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get person"})
		return false
	}
	if person == nil || person.HouseholdID != householdID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "person not found"})
		return false
	}
	return true
}

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
