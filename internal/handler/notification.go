package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/volunteerhub/volunteerhub/internal/auth"
	"github.com/volunteerhub/volunteerhub/internal/model"
	"github.com/volunteerhub/volunteerhub/internal/notify"
)

type NotificationHandler struct {
	pipeline *notify.Pipeline
	logger   *slog.Logger
}

func NewNotificationHandler(pipeline *notify.Pipeline, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{pipeline: pipeline, logger: logger}
}

// List handles GET /api/notifications. ?unread=true filters to unread only.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	onlyUnread := r.URL.Query().Get("unread") == "true"

	notifications, err := h.pipeline.ListForUser(userID, onlyUnread)
	if err != nil {
		h.logger.Error("list notifications", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list notifications"})
		return
	}
	if notifications == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

// UnreadCount handles GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	count, err := h.pipeline.UnreadCount(userID)
	if err != nil {
		h.logger.Error("unread count", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to count notifications"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// MarkRead handles POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	switch err := h.pipeline.MarkRead(id, userID); {
	case errors.Is(err, notify.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
	case errors.Is(err, notify.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your notification"})
	case err != nil:
		h.logger.Error("mark read", "notification_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to mark read"})
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// MarkAllRead handles POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	marked, err := h.pipeline.MarkAllRead(userID)
	if err != nil {
		h.logger.Error("mark all read", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to mark all read"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked": marked})
}

// Delete handles DELETE /api/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	switch err := h.pipeline.Delete(id, userID); {
	case errors.Is(err, notify.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
	case errors.Is(err, notify.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your notification"})
	case err != nil:
		h.logger.Error("delete notification", "notification_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete"})
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

type sendRequest struct {
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Type    string         `json:"type"`
	Data    map[string]any `json:"data"`
	UserIDs []int64        `json:"user_ids"`
}

// Send handles POST /api/notifications/send (admin only): create and deliver
// a notification to each listed user.
func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	senderID := auth.UserID(r.Context())

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title and message are required"})
		return
	}
	if len(req.UserIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_ids is required"})
		return
	}
	if req.Type == "" {
		req.Type = model.NotifTypeWebPush
	}

	sent, failed := 0, 0
	for _, userID := range req.UserIDs {
		_, err := h.pipeline.CreateAndDeliver(r.Context(), notify.CreateInput{
			ReceiverID: userID,
			SenderID:   &senderID,
			Title:      req.Title,
			Message:    req.Message,
			Type:       req.Type,
			Data:       req.Data,
		})
		if err != nil {
			failed++
			h.logger.Error("send notification", "receiver_id", userID, "error", err)
			continue
		}
		sent++
	}

	writeJSON(w, http.StatusOK, map[string]int{"sent": sent, "failed": failed})
}
