package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/avelar/hometask/internal/auth"
	"github.com/avelar/hometask/internal/reminder"
	"github.com/avelar/hometask/internal/store"
)

type SettingsHandler struct {
	settingsStore *store.SettingsStore
	reminders     *reminder.Scheduler
	logger        *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, rs *reminder.Scheduler, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settingsStore: ss, reminders: rs, logger: logger}
}

type notificationsResponse struct {
	Enabled bool `json:"enabled"`
}

// GetNotifications handles GET /api/settings/notifications
func (h *SettingsHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	enabled, err := h.settingsStore.NotificationsEnabled(householdID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get settings"})
		return
	}
	writeJSON(w, http.StatusOK, notificationsResponse{Enabled: enabled})
}

// UpdateNotifications handles PUT /api/settings/notifications. Flipping
// the preference rearms or cancels the household's reminder timers.
func (h *SettingsHandler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	var req notificationsResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.settingsStore.SetNotificationsEnabled(householdID, req.Enabled); err != nil {
		h.logger.Error("set notifications", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save settings"})
		return
	}

	if h.reminders != nil {
		if err := h.reminders.SyncHousehold(householdID); err != nil {
			h.logger.Error("sync reminders", "household_id", householdID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, notificationsResponse{Enabled: req.Enabled})
}
