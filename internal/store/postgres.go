// Package store persists accounts, login credentials, pending users and the
// sudoers list in Postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/diarybot/core/logger"
)

const (
	pgUniqueViolation = "23505"

	constraintUsername = "users_username_key"
	constraintUserID   = "users_user_id_key"
)

// Postgres implements the credential store over sqlx.
type Postgres struct {
	db    *sqlx.DB
	newID func() uuid.UUID
}

// NewPostgres wraps an open connection pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db, newID: uuid.New}
}

// IsRegisteredByUsername reports whether an account owns username.
func (p *Postgres) IsRegisteredByUsername(ctx context.Context, username string) (bool, error) {
	var ok bool
	err := p.db.GetContext(ctx, &ok, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username)
	if err != nil {
		return false, p.fail(ctx, "users.exists_username", err)
	}
	return ok, nil
}

// IsRegisteredByID reports whether the Telegram user already has an account.
func (p *Postgres) IsRegisteredByID(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	err := p.db.GetContext(ctx, &ok, `SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)`, userID)
	if err != nil {
		return false, p.fail(ctx, "users.exists_id", err)
	}
	return ok, nil
}

// GetUserByUsername returns ErrNotFound when no account owns username.
func (p *Postgres) GetUserByUsername(ctx context.Context, username string) (*RegisteredUser, error) {
	var u RegisteredUser
	err := p.db.GetContext(ctx, &u, `
		SELECT user_id, username, email, nickname, total_pages, registered_at
		FROM users WHERE username = $1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, p.fail(ctx, "users.get_username", err)
	}
	return &u, nil
}

// GetUserByID returns ErrNotFound when the Telegram user has no account.
func (p *Postgres) GetUserByID(ctx context.Context, userID int64) (*RegisteredUser, error) {
	var u RegisteredUser
	err := p.db.GetContext(ctx, &u, `
		SELECT user_id, username, email, nickname, total_pages, registered_at
		FROM users WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, p.fail(ctx, "users.get_id", err)
	}
	return &u, nil
}

// ListUsernames returns every username in registration order.
func (p *Postgres) ListUsernames(ctx context.Context) ([]string, error) {
	var names []string
	if err := p.db.SelectContext(ctx, &names, `SELECT username FROM users ORDER BY registered_at, user_id`); err != nil {
		return nil, p.fail(ctx, "users.list", err)
	}
	return names, nil
}

// RegisterUser writes the account and its first login credential atomically.
// Unique constraints decide races: the loser gets ErrUsernameTaken or ErrAlreadyRegistered.
func (p *Postgres) RegisterUser(ctx context.Context, u NewUser) (err error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return p.fail(ctx, "users.register", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO users (user_id, username, email, nickname, total_pages)
		VALUES ($1, $2, $3, $4, 0)`,
		u.UserID, u.Username, u.Email, u.Nickname); err != nil {
		return p.mapWriteErr(ctx, "users.register", err)
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO login_sessions (id, user_id, username, password_hash, email)
		VALUES ($1, $2, $3, $4, $5)`,
		p.newID(), u.UserID, u.Username, u.PasswordHash, u.Email); err != nil {
		return p.mapWriteErr(ctx, "users.register", err)
	}
	if err = tx.Commit(); err != nil {
		return p.mapWriteErr(ctx, "users.register", err)
	}

	logger.LogEvent(ctx, logger.Store, slog.LevelInfo, "store.user_registered",
		slog.String("status", "ok"),
		slog.Int64("target_id", u.UserID),
		slog.String("username", u.Username),
	)
	return nil
}

// GetLoginCredential returns the newest credential row for username.
func (p *Postgres) GetLoginCredential(ctx context.Context, username string) (*LoginCredential, error) {
	var c LoginCredential
	err := p.db.GetContext(ctx, &c, `
		SELECT id, user_id, username, password_hash, email, created_at
		FROM login_sessions WHERE username = $1
		ORDER BY created_at DESC, id LIMIT 1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, p.fail(ctx, "login.get", err)
	}
	return &c, nil
}

// LoginUser verifies plain against the stored hash and returns the Telegram ID
// the account was registered with. Credential rows appended by later logins
// carry the logging-in user's ID, so the owner comes from users.
func (p *Postgres) LoginUser(ctx context.Context, username, plain string) (int64, error) {
	c, err := p.GetLoginCredential(ctx, username)
	if err != nil {
		return 0, err
	}
	if !VerifyPassword(plain, c.PasswordHash) {
		return 0, ErrIncorrectPassword
	}
	var owner int64
	err = p.db.GetContext(ctx, &owner, `SELECT user_id FROM users WHERE username = $1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, p.fail(ctx, "login.owner", err)
	}
	return owner, nil
}

// SaveLoginSession appends a credential row. The hash is stored as given, never re-hashed.
func (p *Postgres) SaveLoginSession(ctx context.Context, c LoginCredential) error {
	if c.ID == uuid.Nil {
		c.ID = p.newID()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO login_sessions (id, user_id, username, password_hash, email)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.UserID, c.Username, c.PasswordHash, c.Email)
	if err != nil {
		return p.fail(ctx, "login.save", err)
	}
	return nil
}

// AddPendingUser records that userID opened the bot. It reports false when already recorded.
func (p *Postgres) AddPendingUser(ctx context.Context, userID int64) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO pending_users (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return false, p.fail(ctx, "pending.add", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, p.fail(ctx, "pending.add", err)
	}
	return n == 1, nil
}

// DeleteUser removes the account and all its credentials. It returns ErrNotFound for unknown usernames.
func (p *Postgres) DeleteUser(ctx context.Context, username string) (err error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return p.fail(ctx, "users.delete", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return p.fail(ctx, "users.delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return p.fail(ctx, "users.delete", err)
	}
	if n == 0 {
		err = ErrNotFound
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM login_sessions WHERE username = $1`, username); err != nil {
		return p.fail(ctx, "users.delete", err)
	}
	if err = tx.Commit(); err != nil {
		return p.fail(ctx, "users.delete", err)
	}
	return nil
}

// GetSudoers returns the singleton sudoers list, empty when never written.
func (p *Postgres) GetSudoers(ctx context.Context) ([]int64, error) {
	var ids pq.Int64Array
	err := p.db.GetContext(ctx, &ids, `SELECT user_ids FROM sudoers WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return []int64{}, nil
	}
	if err != nil {
		return nil, p.fail(ctx, "sudoers.get", err)
	}
	return []int64(ids), nil
}

// IsSudoer reports whether userID is on the sudoers list.
func (p *Postgres) IsSudoer(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	err := p.db.GetContext(ctx, &ok,
		`SELECT EXISTS(SELECT 1 FROM sudoers WHERE id = 1 AND $1::bigint = ANY(user_ids))`, userID)
	if err != nil {
		return false, p.fail(ctx, "sudoers.check", err)
	}
	return ok, nil
}

// AddSudo puts userID on the list. Adding an existing member is a no-op.
func (p *Postgres) AddSudo(ctx context.Context, userID int64) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO sudoers (id, user_ids) VALUES (1, ARRAY[$1::bigint])
		ON CONFLICT (id) DO UPDATE SET user_ids = CASE
			WHEN $1::bigint = ANY(sudoers.user_ids) THEN sudoers.user_ids
			ELSE array_append(sudoers.user_ids, $1::bigint)
		END`, userID)
	if err != nil {
		return p.fail(ctx, "sudoers.add", err)
	}
	return nil
}

// RemoveSudo takes userID off the list. Removing a non-member is a no-op.
func (p *Postgres) RemoveSudo(ctx context.Context, userID int64) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE sudoers SET user_ids = array_remove(user_ids, $1::bigint) WHERE id = 1`, userID)
	if err != nil {
		return p.fail(ctx, "sudoers.remove", err)
	}
	return nil
}

func (p *Postgres) mapWriteErr(ctx context.Context, op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		switch pqErr.Constraint {
		case constraintUsername:
			return ErrUsernameTaken
		case constraintUserID:
			return ErrAlreadyRegistered
		}
	}
	return p.fail(ctx, op, err)
}

func (p *Postgres) fail(ctx context.Context, op string, err error) error {
	logger.LogEvent(ctx, logger.Store, slog.LevelError, "store.failed",
		slog.String("status", "fail"),
		slog.String("op", op),
		slog.String("err", err.Error()),
	)
	return &Error{Op: op, Err: err}
}

// SudoSeeder returns a boot step that puts the owner on the sudoers list.
func SudoSeeder(ownerID int64) func(ctx context.Context, db *sqlx.DB) error {
	return func(ctx context.Context, db *sqlx.DB) error {
		if ownerID <= 0 {
			return nil
		}
		start := time.Now()
		if err := NewPostgres(db).AddSudo(ctx, ownerID); err != nil {
			return err
		}
		logger.SEED.Info("owner seeded into sudoers",
			slog.String("event", "seed.sudoers"),
			slog.Int64("target_id", ownerID),
			slog.Duration("duration", logger.Took(start)),
		)
		return nil
	}
}
