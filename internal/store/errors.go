package store

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound means no row matched the lookup.
	ErrNotFound = errors.New("store: not found")
	// ErrUsernameTaken means another account already owns the username.
	ErrUsernameTaken = errors.New("store: username already exists")
	// ErrAlreadyRegistered means the Telegram user already has an account.
	ErrAlreadyRegistered = errors.New("store: user already registered")
	// ErrIncorrectPassword means the password did not match the stored hash.
	ErrIncorrectPassword = errors.New("store: incorrect password")
)

// Error wraps an I/O failure of a store operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "store: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Code reports a stable identifier for handler summaries.
func (e *Error) Code() string {
	return "STORE_" + strings.ToUpper(strings.ReplaceAll(e.Op, ".", "_"))
}

// IsConflict reports whether err means the account data clashes with an existing account.
func IsConflict(err error) bool {
	return errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrAlreadyRegistered)
}
