package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordSaltsEachCall(t *testing.T) {
	a, err := HashPasswordCost("s3cret!pass", bcrypt.MinCost)
	require.NoError(t, err)
	b, err := HashPasswordCost("s3cret!pass", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "s3cret!pass")
	assert.True(t, VerifyPassword("s3cret!pass", a))
	assert.True(t, VerifyPassword("s3cret!pass", b))
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPasswordCost("correct-horse!", bcrypt.MinCost)
	require.NoError(t, err)

	cases := []struct {
		name  string
		plain string
		hash  string
		want  bool
	}{
		{name: "match", plain: "correct-horse!", hash: hash, want: true},
		{name: "mismatch", plain: "wrong-horse!", hash: hash},
		{name: "empty hash", plain: "correct-horse!", hash: ""},
		{name: "malformed hash", plain: "correct-horse!", hash: "not-a-bcrypt-hash"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, VerifyPassword(tc.plain, tc.hash))
		})
	}
}

func TestHashPasswordRejectsOverlongInput(t *testing.T) {
	_, err := HashPasswordCost(strings.Repeat("a", MaxPasswordBytes+1), bcrypt.MinCost)
	require.Error(t, err)
}
