package auth

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/m3rciful/diarybot/internal/store"
)

const (
	minPasswordRunes = 8
	passwordSpecials = `!@#$%^&*(),.?":{}|<>`
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@(gmail|hotmail|outlook)\.com$`)

func hasSpace(s string) bool {
	return strings.ContainsFunc(s, unicode.IsSpace)
}

// ValidateUsername accepts any non-empty input without whitespace.
func ValidateUsername(s string) error {
	return validateHandle("username", s)
}

// ValidateNickname accepts any non-empty input without whitespace.
func ValidateNickname(s string) error {
	return validateHandle("nickname", s)
}

func validateHandle(field, s string) error {
	if s == "" {
		return invalid(field, "empty")
	}
	if hasSpace(s) {
		return invalid(field, "whitespace")
	}
	return nil
}

// ValidatePassword requires 8+ characters, a special character and no whitespace.
// Inputs longer than bcrypt accepts are rejected here rather than at commit.
func ValidatePassword(s string) error {
	switch {
	case utf8.RuneCountInString(s) < minPasswordRunes:
		return invalid("password", "too_short")
	case len(s) > store.MaxPasswordBytes:
		return invalid("password", "too_long")
	case hasSpace(s):
		return invalid("password", "whitespace")
	case !strings.ContainsAny(s, passwordSpecials):
		return invalid("password", "no_special")
	}
	return nil
}

// ValidateEmail accepts Gmail, Hotmail and Outlook addresses only.
func ValidateEmail(s string) error {
	if hasSpace(s) {
		return invalid("email", "whitespace")
	}
	if !emailPattern.MatchString(s) {
		return invalid("email", "format")
	}
	return nil
}
