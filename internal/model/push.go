package model

import "time"

// PushSubscription is a stored browser push endpoint. (user_id, endpoint) is
// unique in practice; an endpoint the push service reports gone is deleted and
// never delivered to again.
type PushSubscription struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}
