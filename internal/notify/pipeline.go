package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/volunteerhub/volunteerhub/internal/model"
	"github.com/volunteerhub/volunteerhub/internal/push"
	"github.com/volunteerhub/volunteerhub/internal/store"
)

// ErrNotFound is returned when the referenced notification or user does not
// exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller is not the notification's receiver.
var ErrForbidden = errors.New("forbidden")

// Broadcaster publishes a named event to a channel's live subscribers.
// Implemented by realtime.Hub.
type Broadcaster interface {
	Publish(channel, event string, payload any)
}

// Dispatcher delivers a payload to stored push endpoints. Implemented by
// push.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, subs []model.PushSubscription, payload push.Payload) (push.Report, error)
}

// Registry lists a user's stored push endpoints.
type Registry interface {
	ListByUser(userID int64) ([]model.PushSubscription, error)
}

// Pipeline orchestrates creation and dual-path delivery of notifications:
// persist first, then fan out to the receiver's private channel and to their
// stored push endpoints. The persisted record is the source of truth; both
// delivery paths are best-effort.
type Pipeline struct {
	notifications *store.NotificationStore
	subscriptions Registry
	broadcaster   Broadcaster
	dispatcher    Dispatcher
	logger        *slog.Logger
}

func NewPipeline(notifications *store.NotificationStore, subscriptions Registry, broadcaster Broadcaster, dispatcher Dispatcher, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		notifications: notifications,
		subscriptions: subscriptions,
		broadcaster:   broadcaster,
		dispatcher:    dispatcher,
		logger:        logger,
	}
}

// CreateInput describes a notification to create and deliver.
type CreateInput struct {
	ReceiverID int64
	SenderID   *int64 // nil for system-generated notifications
	Title      string
	Message    string
	Type       string
	Data       map[string]any
}

// wireNotification is the JSON shape broadcast to clients.
type wireNotification struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	IsRead    bool           `json:"is_read"`
	CreatedAt string         `json:"created_at"`
	SenderID  *int64         `json:"sender_id"`
}

func wireView(n *model.Notification) wireNotification {
	return wireNotification{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Data:      n.Data,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		SenderID:  n.SenderID,
	}
}

func channelFor(userID int64) string {
	return fmt.Sprintf("notifications.%d", userID)
}

// CreateAndDeliver persists a notification, then broadcasts it on the
// receiver's private channel and dispatches it to the receiver's push
// endpoints. The two delivery paths run concurrently; their failures are
// logged but never abort the call. Persistence failures do abort — a
// notification is never delivered without being durably recorded first.
func (p *Pipeline) CreateAndDeliver(ctx context.Context, in CreateInput) (*model.Notification, error) {
	if in.Type == "" {
		in.Type = model.NotifTypeSystem
	}

	n, err := p.notifications.Create(in.ReceiverID, in.SenderID, in.Title, in.Message, in.Type, in.Data)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("persist notification: %w", err)
	}

	var g errgroup.Group

	g.Go(func() error {
		p.broadcaster.Publish(channelFor(n.ReceiverID), "notification.new", wireView(n))
		return nil
	})

	g.Go(func() error {
		p.dispatchPush(ctx, n)
		return nil
	})

	// Both branches swallow their own errors; Wait only synchronizes so the
	// outcome is observable by the time the call returns.
	g.Wait()

	return n, nil
}

func (p *Pipeline) dispatchPush(ctx context.Context, n *model.Notification) {
	subs, err := p.subscriptions.ListByUser(n.ReceiverID)
	if err != nil {
		p.logger.Error("list push subscriptions", "receiver_id", n.ReceiverID, "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	payload := push.Payload{
		Title:     n.Title,
		Body:      n.Message,
		Timestamp: n.CreatedAt.UTC().Format(time.RFC3339),
	}
	if url, ok := n.Data["url"].(string); ok {
		payload.URL = url
	}

	report, err := p.dispatcher.Dispatch(ctx, subs, payload)
	if err != nil {
		p.logger.Error("push dispatch", "notification_id", n.ID, "error", err)
		return
	}
	p.logger.Debug("push dispatched", "notification_id", n.ID,
		"attempted", report.Attempted, "sent", report.Sent,
		"failed", report.Failed, "pruned", report.Pruned)
}

// MarkRead sets is_read on a notification owned by the caller and tells the
// caller's other open sessions. Already-read notifications are a no-op, not
// an error.
func (p *Pipeline) MarkRead(notificationID, callerID int64) error {
	n, err := p.notifications.GetByID(notificationID)
	if err != nil {
		return fmt.Errorf("load notification: %w", err)
	}
	if n == nil {
		return ErrNotFound
	}
	if n.ReceiverID != callerID {
		return ErrForbidden
	}

	if !n.IsRead {
		if err := p.notifications.MarkRead(notificationID); err != nil {
			return err
		}
	}

	p.broadcaster.Publish(channelFor(callerID), "notification.read",
		map[string]any{"notification_id": notificationID})
	return nil
}

// MarkAllRead marks every unread notification of the caller as read and
// broadcasts one read event per affected notification. Returns the number
// marked.
func (p *Pipeline) MarkAllRead(callerID int64) (int, error) {
	ids, err := p.notifications.MarkAllRead(callerID)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		p.broadcaster.Publish(channelFor(callerID), "notification.read",
			map[string]any{"notification_id": id})
	}
	return len(ids), nil
}

// Delete hard-deletes a notification owned by the caller. Other open sessions
// get a read event so badge counts stay in sync.
func (p *Pipeline) Delete(notificationID, callerID int64) error {
	n, err := p.notifications.GetByID(notificationID)
	if err != nil {
		return fmt.Errorf("load notification: %w", err)
	}
	if n == nil {
		return ErrNotFound
	}
	if n.ReceiverID != callerID {
		return ErrForbidden
	}

	if err := p.notifications.Delete(notificationID); err != nil {
		return err
	}

	p.broadcaster.Publish(channelFor(callerID), "notification.read",
		map[string]any{"notification_id": notificationID})
	return nil
}

// ListForUser returns the caller's notifications, newest first.
func (p *Pipeline) ListForUser(callerID int64, onlyUnread bool) ([]model.Notification, error) {
	return p.notifications.ListByReceiver(callerID, onlyUnread)
}

// UnreadCount returns the caller's number of unread notifications.
func (p *Pipeline) UnreadCount(callerID int64) (int, error) {
	return p.notifications.UnreadCount(callerID)
}
