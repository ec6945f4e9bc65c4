package handler

import (
	"net/http"

	"github.com/avelar/hometask/internal/auth"
	"github.com/avelar/hometask/internal/feed"
	"github.com/avelar/hometask/internal/model"
	"github.com/avelar/hometask/internal/store"
)

type FeedHandler struct {
	feed           *feed.Log
	householdStore *store.HouseholdStore
}

func NewFeedHandler(fl *feed.Log, hs *store.HouseholdStore) *FeedHandler {
	return &FeedHandler{feed: fl, householdStore: hs}
}

// List handles GET /api/feed. Households that never synced have no
// remote feed, so they get an empty list.
func (h *FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	household, err := h.householdStore.GetByID(householdID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get household"})
		return
	}
	if household == nil || household.RemoteID == "" {
		writeJSON(w, http.StatusOK, []model.FeedEvent{})
		return
	}

	events := h.feed.Events(household.RemoteID)
	if events == nil {
		events = []model.FeedEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
