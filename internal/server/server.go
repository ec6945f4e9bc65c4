package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/avelar/hometask/internal/backup"
	"github.com/avelar/hometask/internal/config"
	"github.com/avelar/hometask/internal/feed"
	"github.com/avelar/hometask/internal/handler"
	"github.com/avelar/hometask/internal/middleware"
	"github.com/avelar/hometask/internal/model"
	"github.com/avelar/hometask/internal/push"
	"github.com/avelar/hometask/internal/reminder"
	"github.com/avelar/hometask/internal/remote"
	"github.com/avelar/hometask/internal/store"
	"github.com/avelar/hometask/internal/syncer"
	"github.com/avelar/hometask/internal/task"
	ws "github.com/avelar/hometask/internal/websocket"
)

type Server struct {
	db  *sql.DB
	hub *ws.Hub

	authH     *handler.AuthHandler
	personH   *handler.PersonHandler
	taskH     *handler.TaskHandler
	feedH     *handler.FeedHandler
	settingsH *handler.SettingsHandler
	pushH     *handler.PushHandler

	householdStore *store.HouseholdStore
	sessionStore   *store.SessionStore

	engine      *syncer.Engine
	feed        *feed.Log
	reminders   *reminder.Scheduler
	sweeper     *task.Sweeper
	backupMgr   *backup.Manager
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger

	cancel context.CancelFunc
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	householdStore := store.NewHouseholdStore(db)
	personStore := store.NewPersonStore(db)
	taskStore := store.NewTaskStore(db)
	settingsStore := store.NewSettingsStore(db)
	sessionStore := store.NewSessionStore(db)
	pushStore := store.NewPushStore(db)

	remoteClient := remote.NewClient(remote.Config{BaseURL: cfg.RemoteURL}, logger.With("component", "remote"))

	feedLog := feed.New(remoteClient, logger.With("component", "feed"))
	feedLog.OnChange(func(householdKey string, _ []model.FeedEvent) {
		h, err := householdStore.GetByRemoteID(householdKey)
		if err != nil || h == nil {
			return
		}
		hub.Broadcast(h.ID, ws.NewMessage("feed", "updated", h.ID))
	})

	// Without configured VAPID keys an ephemeral pair keeps push working
	// for the process lifetime; subscriptions outlive it but stop
	// receiving after a restart.
	pubKey, privKey := cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey
	if pubKey == "" || privKey == "" {
		var err error
		pubKey, privKey, err = push.GenerateVAPIDKeys()
		if err != nil {
			logger.Error("generate vapid keys", "error", err)
		} else {
			logger.Warn("using ephemeral VAPID keys, set HOMETASK_VAPID_PUBLIC_KEY/HOMETASK_VAPID_PRIVATE_KEY to persist them")
		}
	}
	pushSvc := push.NewService(pubKey, privKey)
	sender := push.NewSender(pushSvc, pushStore, logger.With("component", "push"))

	reminders := reminder.NewScheduler(taskStore, settingsStore, sender, logger.With("component", "reminder"))

	engine := syncer.NewEngine(
		householdStore, personStore, taskStore, settingsStore,
		remoteClient, feedLog, reminders,
		logger.With("component", "syncer"),
	)

	return &Server{
		db:  db,
		hub: hub,

		authH:     handler.NewAuthHandler(engine, householdStore, sessionStore, settingsStore, feedLog, logger.With("component", "auth")),
		personH:   handler.NewPersonHandler(engine, personStore, hub, logger.With("component", "person")),
		taskH:     handler.NewTaskHandler(engine, taskStore, hub, logger.With("component", "task")),
		feedH:     handler.NewFeedHandler(feedLog, householdStore),
		settingsH: handler.NewSettingsHandler(settingsStore, reminders, logger.With("component", "settings")),
		pushH:     handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler")),

		householdStore: householdStore,
		sessionStore:   sessionStore,

		engine:      engine,
		feed:        feedLog,
		reminders:   reminders,
		sweeper:     task.NewSweeper(taskStore, householdStore, logger.With("component", "sweeper")),
		backupMgr:   backup.NewManager(cfg.Backup, db, logger.With("component", "backup")),
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Start brings up the background machinery: the status sweeper, the
// backup schedule, feed watchers and reminder timers for every known
// household, and periodic cleanup of expired sessions.
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if err := s.sweeper.Start(); err != nil {
		return err
	}
	s.backupMgr.Start()

	ids, err := s.householdStore.ListIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		h, err := s.householdStore.GetByID(id)
		if err != nil || h == nil {
			continue
		}
		s.feed.Subscribe(ctx, h.RemoteID)
		if err := s.reminders.SyncHousehold(h.ID); err != nil {
			s.logger.Error("restore reminders", "household_id", h.ID, "error", err)
		}
	}

	go s.cleanupLoop(ctx)
	return nil
}

// Stop tears down background work in reverse order of Start.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.backupMgr.Stop()
	s.sweeper.Stop()
	s.reminders.Stop()
	s.feed.Close()
}

func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.sessionStore.DeleteExpired(); err != nil {
				s.logger.Error("delete expired sessions", "error", err)
			} else if n > 0 {
				s.logger.Info("deleted expired sessions", "count", n)
			}
			s.rateLimiter.Cleanup()
		}
	}
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)
	mux.HandleFunc("GET /api/auth/remembered", s.authH.Remembered)

	mux.HandleFunc("GET /api/people", s.personH.List)
	mux.HandleFunc("POST /api/people", s.personH.Create)
	mux.HandleFunc("PUT /api/people/{id}", s.personH.Update)
	mux.HandleFunc("DELETE /api/people/{id}", s.personH.Delete)

	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.taskH.Complete)
	mux.HandleFunc("POST /api/sync", s.taskH.Sync)

	mux.HandleFunc("GET /api/feed", s.feedH.List)

	mux.HandleFunc("GET /api/settings/notifications", s.settingsH.GetNotifications)
	mux.HandleFunc("PUT /api/settings/notifications", s.settingsH.UpdateNotifications)

	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}
