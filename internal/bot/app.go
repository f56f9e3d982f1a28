// Package bot adapts the auth machine to Telegram: it registers commands and
// buttons, turns updates into machine events and renders the responses.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/diarybot/core/logger"
	tg "github.com/m3rciful/diarybot/core/telegram"
	"github.com/m3rciful/diarybot/core/telegram/middleware"
	"github.com/m3rciful/diarybot/core/telegram/router"
	"github.com/m3rciful/diarybot/core/telegram/state"
	"github.com/m3rciful/diarybot/internal/auth"
	"github.com/m3rciful/diarybot/internal/config"
	"github.com/m3rciful/diarybot/internal/store"
)

// Store is everything the adapter needs from persistence.
type Store interface {
	auth.CredentialStore
	middleware.SudoChecker
	GetUserByID(ctx context.Context, userID int64) (*store.RegisteredUser, error)
	ListUsernames(ctx context.Context) ([]string, error)
	DeleteUser(ctx context.Context, username string) error
	GetSudoers(ctx context.Context) ([]int64, error)
	AddSudo(ctx context.Context, userID int64) error
	RemoveSudo(ctx context.Context, userID int64) error
}

// App is the Telegram application. It implements the runner's TelegramApp and
// the router's Conversation.
type App struct {
	cfg          *config.Config
	store        Store
	convs        auth.ConversationStore
	machine      *auth.Machine
	registry     *tg.Registry
	out          messenger
	cleanupDelay time.Duration
	ownerID      int64
	closers      []func() error
}

// New builds the application on top of st. The conversation backend is chosen
// from cfg.State.
func New(ctx context.Context, cfg *config.Config, st Store) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bot: nil config")
	}
	if st == nil {
		return nil, fmt.Errorf("bot: nil store")
	}

	var (
		convs   auth.ConversationStore
		closers []func() error
	)
	switch cfg.State.Backend {
	case config.StateRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.State.Redis.Addr,
			Password: cfg.State.Redis.Password,
			DB:       cfg.State.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("bot: redis ping failed: %w", err)
		}
		convs = state.NewRedis[auth.Conversation](client, state.RedisOptions{
			Prefix: cfg.State.Redis.Prefix,
			TTL:    cfg.State.TTL,
		})
		closers = append(closers, client.Close)
	default:
		convs = auth.NewMemoryConversations()
	}
	logger.TG.Info("conversation store ready",
		slog.String("event", "state.init"),
		slog.String("backend", cfg.State.Backend),
	)

	a := newApp(cfg, st, convs, helperMessenger{})
	a.closers = closers
	return a, nil
}

func newApp(cfg *config.Config, st Store, convs auth.ConversationStore, out messenger) *App {
	machine := auth.NewMachine(st, convs, auth.Options{
		Images: auth.Images{
			Start: cfg.Images.StartImage,
			Auth:  cfg.Images.AuthImage,
			Steps: cfg.Images.StepImages,
		},
		HashOnCapture: cfg.Auth.HashOnCapture,
	})
	a := &App{
		cfg:          cfg,
		store:        st,
		convs:        convs,
		machine:      machine,
		registry:     tg.NewRegistry(),
		out:          out,
		cleanupDelay: cfg.Auth.CleanupDelay,
		ownerID:      cfg.Telegram.AdminID,
	}
	a.registerCommands()
	a.registerCallbacks()
	a.registry.SetCallbackNotFound(a.UnknownCallback())
	return a
}

// TelegramRunOptions wires routes, middlewares and lifecycle hooks.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	routes := router.Build(a.registry, router.Options{
		Conversation: a,
		Fallbacks:    a,
		Sudo:         a.store,
	})

	return tg.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(),
		Routes:      routes,
		OnStart: func(_ context.Context, rt tg.Runtime) error {
			if rt.Bot != nil && rt.Bot.Me != nil {
				a.machine.SetBotUsername(rt.Bot.Me.Username)
			}
			return nil
		},
		OnStop: func(context.Context, tg.Runtime) error {
			return a.Close()
		},
	}, nil
}

// Close releases the conversation backend.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// InProgress reports whether userID is inside a registration or login flow.
func (a *App) InProgress(ctx context.Context, userID int64) (bool, error) {
	return state.InProgress(ctx, a.convs, userID)
}

// OnClose registers fn to run when the app stops.
func (a *App) OnClose(fn func() error) {
	if fn != nil {
		a.closers = append(a.closers, fn)
	}
}
