package logger

import (
	"log/slog"
	"strings"
)

func levelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

// outcomes is the closed vocabulary of the outcome key. Handlers report
// ok/fail; the auth flow reports what happened to the conversation.
var outcomes = map[string]bool{
	"ok": true, "fail": true, "ignored": true,
	"advanced": true, "rejected": true, "aborted": true,
	"committed": true, "cancelled": true,
}

func knownOutcome(o string) string {
	o = strings.ToLower(strings.TrimSpace(o))
	if outcomes[o] {
		return o
	}
	return ""
}

var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type", "handler",
	"op", "cb_key", "flow", "step", "next_step", "outcome", "reason",
	"duration_ms", "messages", "kb", "count", "payload", "lang", "username", "target_id",
	"mode", "listen", "public_url", "db",
	"err", "err_code", "cause", "attempts",
}

const redacted = "[redacted]"

// secretKeys are redacted wherever they appear, including inside groups.
var secretKeys = map[string]bool{
	"password":      true,
	"password_hash": true,
	"token":         true,
	"bot_token":     true,
	"dsn":           true,
}

func isSecretKey(key string) bool {
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	return secretKeys[strings.ToLower(key)]
}
