package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/diarybot/core/buildinfo"
	coreconfig "github.com/m3rciful/diarybot/core/config"
)

const (
	defaultSampleNum = 1
	defaultSampleDen = 50
)

var (
	setup   sync.Once
	closeMu sync.Mutex
	closed  bool

	out     *asyncWriter
	sinks   []io.Closer
	level   slog.LevelVar
	sample  sampler
	tracing bool

	// L is the root logger; the component loggers below are derived from it.
	L = slog.New(discardHandler{})

	DB    = L // connection pool
	MIG   = L // schema migrations
	SEED  = L // boot-time seeding
	TG    = L // Telegram transport
	TWire = L // route and command wiring
	Store = L // credential store
	Auth  = L // registration and login flows
)

// InitLogger installs the structured logger as slog's default. Later calls are no-ops.
func InitLogger(cfg *coreconfig.Config) error {
	setup.Do(func() {
		var lc coreconfig.LoggingConfig
		if cfg != nil {
			lc = cfg.Logging
		}
		level.Set(parseLevel(lc.Level))
		sample.set(sampleRatio(lc.DebugSample))
		tracing = envFlag("TRACE") || envFlag("LOG_TRACE")

		writers, files := openSinks(lc)
		sinks = files
		out = newAsyncWriter(writers, 64*1024)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &level,
			writer:   out,
			format:   pickFormat(lc),
			keyOrder: pickKeyOrder(lc.KeysOrder),
		}))
		slog.SetDefault(L)

		DB = Component("db")
		MIG = Component("db.migrate")
		SEED = Component("db.seed")
		TG = Component("tg")
		TWire = Component("tg.wire")
		Store = Component("store")
		Auth = Component("auth")

		mode := ""
		if cfg != nil {
			mode = cfg.Telegram.RunMode
		}
		LogEvent(context.Background(), Component("app"), slog.LevelInfo, "startup",
			slog.String("go_version", runtime.Version()),
			slog.String("build", buildinfo.String()),
			slog.String("cfg_profile", profileOf(lc)),
			slog.String("mode", mode),
		)
	})
	return nil
}

// Shutdown drains pending lines and closes file sinks. Safe to call twice.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if out != nil {
		errs = append(errs, out.Flush(), out.Close())
	}
	for _, c := range sinks {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func profileOf(lc coreconfig.LoggingConfig) string {
	if p := strings.TrimSpace(lc.Profile); p != "" {
		return strings.ToLower(p)
	}
	return "prod"
}

func pickFormat(lc coreconfig.LoggingConfig) logFormat {
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "json":
		return formatJSON
	case "kv", "text", "pretty":
		return formatKV
	}
	switch profileOf(lc) {
	case "debug", "dev":
		return formatKV
	}
	return formatJSON
}

// pickKeyOrder parses a comma separated key list; "" and "default" keep the built-in order.
func pickKeyOrder(raw string) []string {
	var order []string
	if raw = strings.TrimSpace(raw); raw != "default" {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
	}
	if len(order) == 0 {
		return append([]string(nil), defaultKeyOrder...)
	}
	return order
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// sampleRatio reads logging.debug_sample, defaulting to 1/50. "0" or an
// unparsable value turns sampling off so every detail is logged.
func sampleRatio(spec string) (int, int) {
	if strings.TrimSpace(spec) == "" {
		return defaultSampleNum, defaultSampleDen
	}
	return parseRatio(spec)
}

func openSinks(lc coreconfig.LoggingConfig) ([]io.Writer, []io.Closer) {
	writers := []io.Writer{os.Stdout}
	dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile)
	if dir == "" || name == "" {
		return writers, nil
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "logger: log dir %s: %v\n", dir, err)
		return writers, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: log file %s: %v\n", path, err)
		return writers, nil
	}
	return append(writers, f), []io.Closer{f}
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ShouldSampleDebug reports whether a high-volume debug detail should be logged now.
// TRACE=1 logs all of them.
func ShouldSampleDebug() bool {
	return tracing || sample.allow()
}

// LogEvent writes attrs under the event name. A nil logger resolves from ctx.
func LogEvent(ctx context.Context, log *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if log == nil {
		log = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	log.LogAttrs(ctx, lvl, "", attrs...)
}

// Component returns L scoped to a component name.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelError, event, attrs...)
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
