package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = raw.Close()
	})
	return NewPostgres(sqlx.NewDb(raw, "postgres")), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestIsRegisteredByUsername(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(q(`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := s.IsRegisteredByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsRegisteredByIDFailureIsStoreError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(q(`FROM users WHERE user_id = $1`)).
		WithArgs(int64(7)).
		WillReturnError(errors.New("connection reset"))

	_, err := s.IsRegisteredByID(context.Background(), 7)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "users.exists_id", se.Op)
	assert.Equal(t, "STORE_USERS_EXISTS_ID", se.Code())
}

func TestGetUserByUsernameNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(q(`FROM users WHERE username = $1`)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err := s.GetUserByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetUserByID(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectQuery(q(`FROM users WHERE user_id = $1`)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "username", "email", "nickname", "total_pages", "registered_at"}).
			AddRow(int64(42), "alice", "a@b.co", "Al", 3, now))

	u, err := s.GetUserByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, 3, u.TotalPages)
}

func TestRegisterUserCommitsBothRows(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(q(`INSERT INTO users`)).
		WithArgs(int64(42), "alice", "a@b.co", "Al").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q(`INSERT INTO login_sessions`)).
		WithArgs(sqlmock.AnyArg(), int64(42), "alice", "$2a$hash", "a@b.co").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.RegisterUser(context.Background(), NewUser{
		UserID: 42, Username: "alice", PasswordHash: "$2a$hash", Email: "a@b.co", Nickname: "Al",
	})
	require.NoError(t, err)
}

func TestRegisterUserMapsUniqueViolations(t *testing.T) {
	cases := []struct {
		constraint string
		want       error
	}{
		{constraint: constraintUsername, want: ErrUsernameTaken},
		{constraint: constraintUserID, want: ErrAlreadyRegistered},
	}
	for _, tc := range cases {
		t.Run(tc.constraint, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectBegin()
			mock.ExpectExec(q(`INSERT INTO users`)).
				WillReturnError(&pq.Error{Code: pgUniqueViolation, Constraint: tc.constraint})
			mock.ExpectRollback()

			err := s.RegisterUser(context.Background(), NewUser{UserID: 1, Username: "bob"})
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, IsConflict(err))
		})
	}
}

func TestRegisterUserRollsBackOnCredentialFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(q(`INSERT INTO users`)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q(`INSERT INTO login_sessions`)).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.RegisterUser(context.Background(), NewUser{UserID: 1, Username: "bob"})
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.False(t, IsConflict(err))
}

func TestLoginUser(t *testing.T) {
	hash, err := HashPasswordCost("s3cret!pass", bcrypt.MinCost)
	require.NoError(t, err)
	cols := []string{"id", "user_id", "username", "password_hash", "email", "created_at"}

	t.Run("ok", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(q(`FROM login_sessions WHERE username = $1`)).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("6f1c2f1e-7d7a-4c3a-9e57-0a4b1f0c9d11", int64(42), "alice", hash, "a@b.co", time.Now()))
		mock.ExpectQuery(q(`SELECT user_id FROM users WHERE username = $1`)).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(42)))

		id, err := s.LoginUser(context.Background(), "alice", "s3cret!pass")
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
	})
	t.Run("newest row written by another user", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(q(`FROM login_sessions WHERE username = $1`)).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("0b7e5c1d-2f44-4d0e-8a51-3c9e2a7d6f20", int64(99), "alice", hash, "", time.Now()))
		mock.ExpectQuery(q(`SELECT user_id FROM users WHERE username = $1`)).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(42)))

		id, err := s.LoginUser(context.Background(), "alice", "s3cret!pass")
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
	})
	t.Run("account deleted", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(q(`FROM login_sessions WHERE username = $1`)).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("6f1c2f1e-7d7a-4c3a-9e57-0a4b1f0c9d11", int64(42), "alice", hash, "", time.Now()))
		mock.ExpectQuery(q(`SELECT user_id FROM users WHERE username = $1`)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

		_, err := s.LoginUser(context.Background(), "alice", "s3cret!pass")
		assert.ErrorIs(t, err, ErrNotFound)
	})
	t.Run("wrong password", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(q(`FROM login_sessions WHERE username = $1`)).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("6f1c2f1e-7d7a-4c3a-9e57-0a4b1f0c9d11", int64(42), "alice", hash, "", time.Now()))

		_, err := s.LoginUser(context.Background(), "alice", "nope!nope")
		assert.ErrorIs(t, err, ErrIncorrectPassword)
	})
	t.Run("unknown user", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(q(`FROM login_sessions WHERE username = $1`)).
			WillReturnRows(sqlmock.NewRows(cols))

		_, err := s.LoginUser(context.Background(), "ghost", "whatever!")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSaveLoginSessionKeepsHash(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(q(`INSERT INTO login_sessions`)).
		WithArgs(sqlmock.AnyArg(), int64(42), "alice", "$2a$stored", "a@b.co").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.SaveLoginSession(context.Background(), LoginCredential{
		UserID: 42, Username: "alice", PasswordHash: "$2a$stored", Email: "a@b.co",
	})
	require.NoError(t, err)
}

func TestAddPendingUser(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(q(`INSERT INTO pending_users`)).WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(`INSERT INTO pending_users`)).WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	added, err := s.AddPendingUser(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddPendingUser(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, added)
}

func TestDeleteUser(t *testing.T) {
	t.Run("removes account and credentials", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(q(`DELETE FROM users WHERE username = $1`)).WithArgs("alice").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(q(`DELETE FROM login_sessions WHERE username = $1`)).WithArgs("alice").
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		require.NoError(t, s.DeleteUser(context.Background(), "alice"))
	})
	t.Run("unknown username", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(q(`DELETE FROM users WHERE username = $1`)).WithArgs("ghost").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		assert.ErrorIs(t, s.DeleteUser(context.Background(), "ghost"), ErrNotFound)
	})
}

func TestSudoers(t *testing.T) {
	t.Run("empty when never written", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(q(`SELECT user_ids FROM sudoers WHERE id = 1`)).
			WillReturnRows(sqlmock.NewRows([]string{"user_ids"}))

		ids, err := s.GetSudoers(context.Background())
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
	t.Run("reads array", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(q(`SELECT user_ids FROM sudoers WHERE id = 1`)).
			WillReturnRows(sqlmock.NewRows([]string{"user_ids"}).AddRow("{10,20}"))

		ids, err := s.GetSudoers(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []int64{10, 20}, ids)
	})
	t.Run("add upserts", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(q(`ON CONFLICT (id) DO UPDATE`)).WithArgs(int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, s.AddSudo(context.Background(), 10))
	})
	t.Run("remove", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(q(`array_remove(user_ids, $1::bigint)`)).WithArgs(int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, s.RemoveSudo(context.Background(), 10))
	})
	t.Run("membership", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(q(`ANY(user_ids)`)).WithArgs(int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		ok, err := s.IsSudoer(context.Background(), 10)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestSudoSeederSkipsUnsetOwner(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()

	require.NoError(t, SudoSeeder(0)(context.Background(), sqlx.NewDb(raw, "postgres")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
