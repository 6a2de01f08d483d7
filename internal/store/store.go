package store

import "errors"

// ErrUserNotFound is returned when an operation references a user that does
// not exist.
var ErrUserNotFound = errors.New("user not found")
