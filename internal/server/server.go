package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/volunteerhub/volunteerhub/internal/auth"
	"github.com/volunteerhub/volunteerhub/internal/handler"
	"github.com/volunteerhub/volunteerhub/internal/jobs"
	"github.com/volunteerhub/volunteerhub/internal/middleware"
	"github.com/volunteerhub/volunteerhub/internal/notify"
	"github.com/volunteerhub/volunteerhub/internal/push"
	"github.com/volunteerhub/volunteerhub/internal/realtime"
	"github.com/volunteerhub/volunteerhub/internal/store"
)

type Config struct {
	JWTSecret string
	Push      push.Config
}

type Server struct {
	db            *sql.DB
	hub           *realtime.Hub
	authorizer    *realtime.Authorizer
	authH         *handler.AuthHandler
	notificationH *handler.NotificationHandler
	pushH         *handler.PushHandler
	eventH        *handler.EventHandler
	channelH      *handler.ChannelHandler
	tokens        *auth.Tokens
	rateLimiter   *middleware.RateLimiter
	expirySweeper *jobs.ExpirySweeper
	logger        *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := realtime.NewHub(logger.With("component", "realtime"))

	userStore := store.NewUserStore(db)
	notificationStore := store.NewNotificationStore(db)
	pushStore := store.NewPushStore(db)
	eventStore := store.NewEventStore(db)
	joinStore := store.NewJoinRequestStore(db)
	channelStore := store.NewChannelStore(db)

	dispatcher := push.NewDispatcher(cfg.Push, pushStore, logger.With("component", "push"))
	pipeline := notify.NewPipeline(notificationStore, pushStore, hub, dispatcher, logger.With("component", "notify"))

	authorizer := realtime.NewAuthorizer(channelStore)
	tokens := auth.NewTokens(cfg.JWTSecret)

	return &Server{
		db:            db,
		hub:           hub,
		authorizer:    authorizer,
		authH:         handler.NewAuthHandler(userStore, tokens, logger.With("component", "auth")),
		notificationH: handler.NewNotificationHandler(pipeline, logger.With("component", "notification")),
		pushH:         handler.NewPushHandler(pushStore, dispatcher, logger.With("component", "push_handler")),
		eventH:        handler.NewEventHandler(eventStore, joinStore, pipeline, logger.With("component", "event")),
		channelH:      handler.NewChannelHandler(channelStore, hub, logger.With("component", "channel")),
		tokens:        tokens,
		rateLimiter:   middleware.NewRateLimiter(),
		expirySweeper: jobs.NewExpirySweeper(eventStore, pipeline, logger.With("component", "expiry")),
		logger:        logger,
	}
}

// ExpirySweeper returns the background sweeper so main can start and stop it.
func (s *Server) ExpirySweeper() *jobs.ExpirySweeper {
	return s.expirySweeper
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedByIP(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedByIP(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedByIP(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}

// rateLimitedByUser keys the sliding window on the caller plus an action
// label, so one throttled action does not starve the others.
func (s *Server) rateLimitedByUser(action string, h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return action + ":" + strconv.FormatInt(auth.UserID(r.Context()), 10)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Notification API routes
	mux.HandleFunc("GET /api/notifications", s.notificationH.List)
	mux.HandleFunc("GET /api/notifications/unread-count", s.notificationH.UnreadCount)
	mux.HandleFunc("POST /api/notifications/read-all", s.notificationH.MarkAllRead)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.notificationH.MarkRead)
	mux.HandleFunc("DELETE /api/notifications/{id}", s.notificationH.Delete)
	mux.Handle("POST /api/notifications/send", middleware.RequireAdmin(http.HandlerFunc(s.notificationH.Send)))

	// Push notification API routes
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions", s.pushH.UnsubscribeAll)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.UnsubscribeDevice)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)

	// Event API routes
	mux.HandleFunc("POST /api/events", s.eventH.Create)
	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("GET /api/events/{id}", s.eventH.Get)
	mux.HandleFunc("PUT /api/events/{id}", s.eventH.Update)
	mux.HandleFunc("POST /api/events/{id}/join", s.rateLimitedByUser("join", s.eventH.Join))
	mux.HandleFunc("POST /api/events/{id}/requests/{request_id}/approve", s.eventH.Approve)
	mux.HandleFunc("POST /api/events/{id}/requests/{request_id}/reject", s.eventH.Reject)

	// Chat group API routes
	mux.HandleFunc("POST /api/channels", s.channelH.Create)
	mux.HandleFunc("POST /api/channels/{id}/messages", s.channelH.SendMessage)
	mux.HandleFunc("POST /api/channels/{id}/members", s.channelH.AddMember)
	mux.HandleFunc("DELETE /api/channels/{id}/members/{user_id}", s.channelH.RemoveMember)

	// WebSocket
	mux.HandleFunc("GET /ws", realtime.HandleWebSocket(s.hub, s.authorizer, s.logger.With("component", "ws")))
}
