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
	"github.com/volunteerhub/volunteerhub/internal/model"
	"github.com/volunteerhub/volunteerhub/internal/notify"
	"github.com/volunteerhub/volunteerhub/internal/store"
)

type EventHandler struct {
	events   *store.EventStore
	joins    *store.JoinRequestStore
	pipeline *notify.Pipeline
	logger   *slog.Logger
}

func NewEventHandler(es *store.EventStore, js *store.JoinRequestStore, pipeline *notify.Pipeline, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: es, joins: js, pipeline: pipeline, logger: logger}
}

type eventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
}

// Create handles POST /api/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if !req.EndAt.After(req.StartAt) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end_at must be after start_at"})
		return
	}

	event, err := h.events.Create(userID, req.Title, req.Description, req.Location, req.StartAt, req.EndAt)
	if err != nil {
		h.logger.Error("create event", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create event"})
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// List handles GET /api/events
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.List()
	if err != nil {
		h.logger.Error("list events", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list events"})
		return
	}
	if events == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// Get handles GET /api/events/{id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	event, err := h.events.GetByID(id)
	if err != nil {
		h.logger.Error("get event", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return
	}
	if event == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Update handles PUT /api/events/{id}. Accepted participants are notified of
// the change.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	event, err := h.events.GetByID(id)
	if err != nil {
		h.logger.Error("get event", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return
	}
	if event == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}
	if event.OwnerID != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your event"})
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	updated, err := h.events.Update(id, req.Title, req.Description, req.Location, req.StartAt, req.EndAt)
	if err != nil {
		h.logger.Error("update event", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update event"})
		return
	}

	h.notifyParticipants(r, updated, userID)
	writeJSON(w, http.StatusOK, updated)
}

func (h *EventHandler) notifyParticipants(r *http.Request, event *model.Event, senderID int64) {
	participants, err := h.joins.ListParticipants(event.ID)
	if err != nil {
		h.logger.Error("list participants", "event_id", event.ID, "error", err)
		return
	}

	for _, participantID := range participants {
		if participantID == senderID {
			continue
		}
		_, err := h.pipeline.CreateAndDeliver(r.Context(), notify.CreateInput{
			ReceiverID: participantID,
			SenderID:   &senderID,
			Title:      "Event updated",
			Message:    fmt.Sprintf("%q has been updated.", event.Title),
			Type:       model.NotifTypeEventUpdate,
			Data: map[string]any{
				"event_id": event.ID,
				"url":      fmt.Sprintf("/events/%d", event.ID),
			},
		})
		if err != nil {
			h.logger.Error("notify participant", "event_id", event.ID, "user_id", participantID, "error", err)
		}
	}
}

// Join handles POST /api/events/{id}/join — files a join request and
// notifies the event owner.
func (h *EventHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	event, err := h.events.GetByID(id)
	if err != nil {
		h.logger.Error("get event", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return
	}
	if event == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}
	if event.Status != model.EventStatusOpen {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "event is no longer open"})
		return
	}
	if event.OwnerID == userID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "you own this event"})
		return
	}

	request, err := h.joins.Create(id, userID)
	if err != nil {
		h.logger.Error("create join request", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create join request"})
		return
	}

	_, err = h.pipeline.CreateAndDeliver(r.Context(), notify.CreateInput{
		ReceiverID: event.OwnerID,
		SenderID:   &userID,
		Title:      "New join request",
		Message:    fmt.Sprintf("Someone wants to join %q.", event.Title),
		Type:       model.NotifTypeJoinRequest,
		Data: map[string]any{
			"event_id": event.ID,
			"user_id":  userID,
			"url":      fmt.Sprintf("/events/%d/requests", event.ID),
		},
	})
	if err != nil {
		h.logger.Error("notify event owner", "event_id", event.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, request)
}

// Approve handles POST /api/events/{id}/requests/{request_id}/approve
func (h *EventHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolveRequest(w, r, model.JoinStatusAccepted)
}

// Reject handles POST /api/events/{id}/requests/{request_id}/reject
func (h *EventHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolveRequest(w, r, model.JoinStatusRejected)
}

func (h *EventHandler) resolveRequest(w http.ResponseWriter, r *http.Request, status string) {
	userID := auth.UserID(r.Context())

	eventID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	requestID, err := strconv.ParseInt(r.PathValue("request_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request id"})
		return
	}

	event, err := h.events.GetByID(eventID)
	if err != nil {
		h.logger.Error("get event", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return
	}
	if event == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}
	if event.OwnerID != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your event"})
		return
	}

	request, err := h.joins.GetByID(requestID)
	if err != nil {
		h.logger.Error("get join request", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get join request"})
		return
	}
	if request == nil || request.EventID != eventID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "join request not found"})
		return
	}

	if err := h.joins.UpdateStatus(requestID, status); err != nil {
		h.logger.Error("update join request", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update join request"})
		return
	}

	title := "Join request approved"
	message := fmt.Sprintf("You were accepted into %q.", event.Title)
	notifType := model.NotifTypeApproved
	if status == model.JoinStatusRejected {
		title = "Join request rejected"
		message = fmt.Sprintf("Your request to join %q was declined.", event.Title)
		notifType = model.NotifTypeRejected
	}

	_, err = h.pipeline.CreateAndDeliver(r.Context(), notify.CreateInput{
		ReceiverID: request.UserID,
		SenderID:   &userID,
		Title:      title,
		Message:    message,
		Type:       notifType,
		Data: map[string]any{
			"event_id": event.ID,
			"url":      fmt.Sprintf("/events/%d", event.ID),
		},
	})
	if err != nil {
		h.logger.Error("notify requester", "event_id", event.ID, "user_id", request.UserID, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}
