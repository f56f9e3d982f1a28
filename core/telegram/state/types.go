package state

import (
	"context"
	"errors"
)

// ErrCorrupt is returned when a persisted value cannot be decoded.
var ErrCorrupt = errors.New("state: corrupt value")

// Store keeps at most one value of type T per Telegram user.
type Store[T any] interface {
	// Get returns the value for a user and whether one exists.
	Get(ctx context.Context, userID int64) (T, bool, error)
	// Put replaces the value for a user.
	Put(ctx context.Context, userID int64, v T) error
	// Delete removes the value. Deleting a missing value is not an error.
	Delete(ctx context.Context, userID int64) error
}

// InProgress reports whether the user has a stored value. A backend error is
// returned as is so callers can tell an outage from an idle user.
func InProgress[T any](ctx context.Context, s Store[T], userID int64) (bool, error) {
	if s == nil {
		return false, nil
	}
	_, ok, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return ok, nil
}
