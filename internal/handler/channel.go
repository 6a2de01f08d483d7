package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/volunteerhub/volunteerhub/internal/auth"
	"github.com/volunteerhub/volunteerhub/internal/store"
)

// Broadcaster publishes a named event to a channel's live subscribers.
// Implemented by realtime.Hub.
type Broadcaster interface {
	Publish(channel, event string, payload any)
}

type ChannelHandler struct {
	channels    *store.ChannelStore
	broadcaster Broadcaster
	logger      *slog.Logger
}

func NewChannelHandler(cs *store.ChannelStore, broadcaster Broadcaster, logger *slog.Logger) *ChannelHandler {
	return &ChannelHandler{channels: cs, broadcaster: broadcaster, logger: logger}
}

type channelRequest struct {
	Name string `json:"name"`
}

// Create handles POST /api/channels — the creator becomes the first member.
func (h *ChannelHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req channelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	channel, err := h.channels.Create(req.Name, userID)
	if err != nil {
		h.logger.Error("create channel", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create channel"})
		return
	}

	writeJSON(w, http.StatusCreated, channel)
}

type messageRequest struct {
	Message string `json:"message"`
}

// wireMessage is the JSON shape broadcast on chat.{id} channels.
type wireMessage struct {
	ChannelID int64  `json:"channel_id"`
	SenderID  int64  `json:"sender_id"`
	Message   string `json:"message"`
	SentAt    string `json:"sent_at"`
}

// SendMessage handles POST /api/channels/{id}/messages — relays a chat
// message to the group's live subscribers. Members only.
func (h *ChannelHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	ok, err := h.channels.IsMember(userID, id)
	if err != nil {
		h.logger.Error("check channel membership", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to send message"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not a member of this channel"})
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	msg := wireMessage{
		ChannelID: id,
		SenderID:  userID,
		Message:   req.Message,
		SentAt:    time.Now().UTC().Format(time.RFC3339),
	}
	h.broadcaster.Publish(fmt.Sprintf("chat.%d", id), "message.new", msg)

	writeJSON(w, http.StatusCreated, msg)
}

type memberRequest struct {
	UserID int64 `json:"user_id"`
}

// AddMember handles POST /api/channels/{id}/members (owner only).
func (h *ChannelHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	channel, err := h.channels.GetByID(id)
	if err != nil {
		h.logger.Error("get channel", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get channel"})
		return
	}
	if channel == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "channel not found"})
		return
	}
	if channel.OwnerID != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your channel"})
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}

	if err := h.channels.AddMember(id, req.UserID); err != nil {
		h.logger.Error("add channel member", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to add member"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RemoveMember handles DELETE /api/channels/{id}/members/{user_id}. The owner
// can remove anyone; members can remove themselves.
func (h *ChannelHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	memberID, err := strconv.ParseInt(r.PathValue("user_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}

	channel, err := h.channels.GetByID(id)
	if err != nil {
		h.logger.Error("get channel", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get channel"})
		return
	}
	if channel == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "channel not found"})
		return
	}
	if channel.OwnerID != userID && memberID != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not allowed"})
		return
	}

	if err := h.channels.RemoveMember(id, memberID); err != nil {
		h.logger.Error("remove channel member", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to remove member"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
