package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/diarybot/core/logger"
	tghelpers "github.com/m3rciful/diarybot/core/telegram/helpers"
	"github.com/m3rciful/diarybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// summary produces the single "handler.handled" line an update ends with.
type summary struct {
	name  string
	start time.Time
	attrs []slog.Attr
}

func newSummary(name string, attrs ...slog.Attr) summary {
	return summary{name: name, start: time.Now(), attrs: attrs}
}

// run calls h and logs the result as ok or fail.
func (s summary) run(c tele.Context, h tele.HandlerFunc) error {
	tghelpers.WithHandler(c, s.name)
	err := h(c)
	s.log(c, "", "", err)
	return err
}

// skip logs the update as ignored. h, when set, still runs to answer the user.
func (s summary) skip(c tele.Context, h tele.HandlerFunc, reason string) error {
	tghelpers.WithHandler(c, s.name)
	var err error
	if h != nil {
		err = h(c)
	}
	if reason != "" {
		s.attrs = append(s.attrs, slog.String("reason", reason))
	}
	s.log(c, "skip", "ignored", err)
	return err
}

func (s summary) log(c tele.Context, status, outcome string, err error) {
	if status == "" {
		status, outcome = "ok", "ok"
		if err != nil {
			status, outcome = "fail", "fail"
		}
	}
	msgs, kb := middleware.GetCounters(c)
	attrs := append([]slog.Attr{
		slog.String("status", status),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.Took(s.start)),
	}, s.attrs...)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelInfo, "handler.handled", attrs...)
}

// handlerName turns "/AddSudo" into "addsudo" for use in handler names.
func handlerName(kind, key string) string {
	key = strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(key), "/"), " ", "_"))
	if key == "" {
		key = "unknown"
	}
	return kind + "." + key
}

// deriveErrorCode prefers an error's own Code(), else the name of its type.
func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}

// wrap installs the per-route middlewares. Logger runs first so the update
// context exists before anything else logs.
func wrap(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.LoggerMiddleware(middleware.RecoverMiddleware(h))
}
