package model

import "time"

// Channel is a named chat group. Membership gates subscription to the
// corresponding chat.{id} websocket channel.
type Channel struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}
