package model

import "time"

// Notification type constants
const (
	NotifTypeJoinRequest   = "event_join_request"
	NotifTypeApproved      = "event_approved"
	NotifTypeRejected      = "event_rejected"
	NotifTypeEventUpdate   = "event_update"
	NotifTypeEventExpired  = "event_expired"
	NotifTypeSystem        = "system"
	NotifTypeMessage       = "message"
	NotifTypeWebPush       = "webpush"
)

// Notification is an in-app notification owned by exactly one receiver.
// IsRead only ever transitions false to true; deletion is terminal.
type Notification struct {
	ID         int64          `json:"id"`
	SenderID   *int64         `json:"sender_id"` // nil for system-generated notifications
	ReceiverID int64          `json:"receiver_id"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Type       string         `json:"type"`
	Data       map[string]any `json:"data"`
	IsRead     bool           `json:"is_read"`
	CreatedAt  time.Time      `json:"created_at"`
}
