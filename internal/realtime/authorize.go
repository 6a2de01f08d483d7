package realtime

import (
	"strconv"
	"strings"
)

// Principal is the authenticated identity of a connecting client.
type Principal struct {
	UserID int64
}

// Membership resolves chat group membership for channel authorization.
type Membership interface {
	IsMember(userID, groupID int64) (bool, error)
}

// Authorizer gates channel subscription requests. Rules are evaluated per
// connecting principal at subscribe time; publishing trusts the caller.
type Authorizer struct {
	membership Membership
}

func NewAuthorizer(membership Membership) *Authorizer {
	return &Authorizer{membership: membership}
}

// Authorize reports whether the principal may subscribe to the named channel.
// Unrecognized channel names are denied.
func (a *Authorizer) Authorize(p Principal, channel string) bool {
	switch {
	case strings.HasPrefix(channel, "notifications."):
		// Per-user private channel: numeric identity match, so "007" and 7
		// compare equal. Malformed IDs are denied.
		id, err := strconv.ParseInt(strings.TrimPrefix(channel, "notifications."), 10, 64)
		if err != nil {
			return false
		}
		return p.UserID == id

	case strings.HasPrefix(channel, "user."):
		id, err := strconv.ParseInt(strings.TrimPrefix(channel, "user."), 10, 64)
		if err != nil {
			return false
		}
		return p.UserID == id

	case strings.HasPrefix(channel, "chat."):
		groupID, err := strconv.ParseInt(strings.TrimPrefix(channel, "chat."), 10, 64)
		if err != nil {
			return false
		}
		ok, err := a.membership.IsMember(p.UserID, groupID)
		if err != nil {
			return false
		}
		return ok

	case strings.HasPrefix(channel, "event."):
		if _, err := strconv.ParseInt(strings.TrimPrefix(channel, "event."), 10, 64); err != nil {
			return false
		}
		// Effectively public. TODO: restrict to users allowed to view the event.
		return true

	case channel == "chat-room":
		return true

	default:
		return false
	}
}
