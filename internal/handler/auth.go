package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/avelar/hometask/internal/auth"
	"github.com/avelar/hometask/internal/feed"
	"github.com/avelar/hometask/internal/middleware"
	"github.com/avelar/hometask/internal/store"
	"github.com/avelar/hometask/internal/syncer"
)

const (
	sessionCookieName = "hometask_session"
	sessionMaxAge     = 30 * 24 * 60 * 60
)

type AuthHandler struct {
	engine         *syncer.Engine
	householdStore *store.HouseholdStore
	sessionStore   *store.SessionStore
	settingsStore  *store.SettingsStore
	feed           *feed.Log
	logger         *slog.Logger
}

func NewAuthHandler(
	engine *syncer.Engine,
	hs *store.HouseholdStore,
	ss *store.SessionStore,
	sts *store.SettingsStore,
	fl *feed.Log,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		engine:         engine,
		householdStore: hs,
		sessionStore:   ss,
		settingsStore:  sts,
		feed:           fl,
		logger:         logger,
	}
}

type registerRequest struct {
	HouseholdName string `json:"household_name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	household, err := h.engine.RegisterHousehold(r.Context(), req.HouseholdName, req.Email, req.Password)
	switch {
	case errors.Is(err, syncer.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, syncer.ErrDuplicate):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "household name or email already taken"})
		return
	case err != nil:
		h.logger.Error("register household", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to register"})
		return
	}

	sess, err := h.sessionStore.Create(household.ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
		return
	}
	h.setSessionCookie(w, r, sess.Token)
	// The watcher outlives this request.
	h.feed.Subscribe(context.WithoutCancel(r.Context()), household.RemoteID)

	writeJSON(w, http.StatusCreated, map[string]any{
		"household": household,
		"token":     sess.Token,
	})
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	household, err := h.engine.Authenticate(r.Context(), req.Name, req.Password)
	if errors.Is(err, syncer.ErrInvalidCredentials) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	if err != nil {
		h.logger.Error("authenticate", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to log in"})
		return
	}

	sess, err := h.sessionStore.Create(household.ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
		return
	}
	h.setSessionCookie(w, r, sess.Token)
	h.feed.Subscribe(context.WithoutCancel(r.Context()), household.RemoteID)

	writeJSON(w, http.StatusOK, map[string]any{
		"household": household,
		"token":     sess.Token,
	})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	if token := middleware.SessionToken(r); token != "" {
		if err := h.sessionStore.Delete(token); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}
	if err := h.engine.Logout(r.Context(), householdID); err != nil {
		h.logger.Error("clear remembered login", "error", err)
	}

	if household, err := h.householdStore.GetByID(householdID); err == nil && household != nil {
		h.feed.Unsubscribe(household.RemoteID)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	household, err := h.householdStore.GetByID(householdID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get household"})
		return
	}
	if household == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "household not found"})
		return
	}
	writeJSON(w, http.StatusOK, household)
}

// Remembered handles GET /api/auth/remembered. It returns the last
// saved login so the client can prefill the form, mirroring the
// remember-me box on the login screen.
func (h *AuthHandler) Remembered(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	name, password, err := h.settingsStore.RememberMe(householdID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get remembered login"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"name":     name,
		"password": password,
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}
