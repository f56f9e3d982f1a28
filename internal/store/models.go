package store

import (
	"time"

	"github.com/google/uuid"
)

// PendingUser marks a Telegram user who opened the bot. Audit only.
type PendingUser struct {
	UserID    int64     `db:"user_id"`
	StartedAt time.Time `db:"started_at"`
}

// RegisteredUser is the canonical account record.
type RegisteredUser struct {
	UserID       int64     `db:"user_id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	Nickname     string    `db:"nickname"`
	TotalPages   int       `db:"total_pages"`
	RegisteredAt time.Time `db:"registered_at"`
}

// LoginCredential is one append-only login row. Several may exist per account.
type LoginCredential struct {
	ID           uuid.UUID `db:"id"`
	UserID       int64     `db:"user_id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Email        string    `db:"email"`
	CreatedAt    time.Time `db:"created_at"`
}

// NewUser carries everything RegisterUser writes. PasswordHash must already be hashed.
type NewUser struct {
	UserID       int64
	Username     string
	PasswordHash string
	Email        string
	Nickname     string
}
