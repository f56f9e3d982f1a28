package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/diarybot/core/config"
	"github.com/m3rciful/diarybot/core/logger"
	tghelpers "github.com/m3rciful/diarybot/core/telegram/helpers"
	tgsender "github.com/m3rciful/diarybot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware is installed globally with bot.Use.
type Middleware struct {
	Name string
	Use  tele.MiddlewareFunc
}

// Route binds a handler to anything tele.Bot.Handle accepts as an endpoint.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions describes the bot RunTelegram assembles.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	// Dispatcher is created from Config.Sender when nil.
	Dispatcher *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	// KeepWebhook skips deleting a stale webhook before long polling.
	KeepWebhook bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime is what lifecycle hooks get to see.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram builds the bot described by opts and serves updates until ctx
// is cancelled. Cancellation is a clean exit.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	cfg := opts.Config

	started := time.Now()
	poller := BuildPoller(PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook:                WebhookOptions{Listen: cfg.Webhook.Listen, Port: cfg.Webhook.Port, URL: cfg.Webhook.URL},
	})
	bot, err := tele.NewBot(tele.Settings{Token: cfg.Telegram.Token, Poller: poller, Client: BuildHTTPClient()})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	logMode(ctx, poller, cfg, time.Since(started))
	if _, polling := poller.(*tele.LongPoller); polling && !opts.KeepWebhook {
		dropWebhook(ctx, bot)
	}

	disp := opts.Dispatcher
	if disp == nil {
		disp = tgsender.NewDispatcher(tgsender.Options{
			QueueSize:  cfg.Sender.QueueSize,
			Workers:    cfg.Sender.Workers,
			MaxRetries: cfg.Sender.MaxRetries,
		})
	}
	tghelpers.SetDispatcher(disp)
	defer func() {
		tghelpers.SetDispatcher(nil)
		disp.Close()
	}()

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, r := range opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
	SetupCommands(bot, opts.Registry)

	rt := Runtime{Bot: bot, Dispatcher: disp, Registry: opts.Registry}
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
	case <-done:
	}

	if opts.OnStop != nil {
		return opts.OnStop(context.WithoutCancel(ctx), rt)
	}
	return nil
}

func logMode(ctx context.Context, p tele.Poller, cfg *coreconfig.Config, took time.Duration) {
	attrs := []slog.Attr{slog.Duration("duration", logger.RoundMS(took))}
	if wh, ok := p.(*tele.Webhook); ok {
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", wh.Listen),
			slog.String("public_url", wh.Endpoint.PublicURL),
		)
	} else {
		attrs = append(attrs,
			slog.String("mode", "polling"),
			slog.Int("timeout_seconds", longPollTimeout(cfg.Telegram.LongPollTimeoutSeconds)),
		)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "mode", attrs...)
}

// dropWebhook removes a webhook left by a previous deployment; Telegram
// refuses getUpdates while one is set.
func dropWebhook(ctx context.Context, bot *tele.Bot) {
	if err := bot.RemoveWebhook(false); err != nil {
		logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "delete_webhook",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "delete_webhook", slog.String("status", "ok"))
}
