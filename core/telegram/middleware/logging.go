package middleware

import (
	"log/slog"
	"strings"

	"github.com/m3rciful/diarybot/core/logger"
	"github.com/m3rciful/diarybot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/diarybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const loggedKey = "update_logged"

// LoggerMiddleware prepares the update context and, when sampled, logs one
// "update.received" line per update. Message text is never logged since
// replies inside a flow carry passwords; only a leading /command is.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		if logged, _ := c.Get(loggedKey).(bool); logged || !logger.ShouldSampleDebug() {
			return next(c)
		}
		c.Set(loggedKey, true)

		var attrs []slog.Attr
		if ch := c.Chat(); ch != nil {
			attrs = append(attrs, slog.String("chat_type", string(ch.Type)))
		}
		if u := c.Sender(); u != nil {
			attrs = append(attrs,
				slog.String("username", logger.SanitizeLimit(u.Username, 64)),
				slog.String("lang", u.LanguageCode),
			)
		}
		if cb := c.Callback(); cb != nil {
			key, payload := callbacks.ParseCallbackData(cb)
			attrs = append(attrs,
				slog.String("cb_key", logger.SanitizeLimit(key, 128)),
				slog.String("payload", logger.SanitizeLimit(payload, 256)),
			)
		} else if cmd := commandToken(c.Text()); cmd != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(cmd, 64)))
		}
		logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", attrs...)
		return next(c)
	}
}

// commandToken returns the leading /command of text without its arguments,
// or "" when text is not a command.
func commandToken(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	return strings.Fields(text)[0]
}
