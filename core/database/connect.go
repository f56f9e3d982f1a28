// Package database opens the Postgres pool and keeps its schema current.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/diarybot/core/logger"
)

const (
	pingTimeout   = 5 * time.Second
	retryInterval = 2 * time.Second
)

// Connect opens the pool, retrying until the server answers a ping or
// cfg.ConnectTimeout runs out. Containers often start before Postgres does.
func Connect(cfg Config) (*sqlx.DB, error) {
	return ConnectContext(context.Background(), cfg)
}

func ConnectContext(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.connectTimeout())
	defer cancel()

	began := time.Now()
	for attempt := 1; ; attempt++ {
		db, err := open(ctx, cfg)
		if err == nil {
			logger.LogEvent(ctx, logger.DB, slog.LevelInfo, "db.connect",
				slog.String("status", "ok"),
				slog.String("db", cfg.Target()),
				slog.Int("pool_open", cfg.poolSize()),
				slog.Int("attempts", attempt),
				slog.Duration("duration", logger.Took(began)),
			)
			return db, nil
		}
		logger.LogEvent(ctx, logger.DB, slog.LevelWarn, "db.connect",
			slog.String("status", "retry"),
			slog.String("db", cfg.Target()),
			slog.Int("attempts", attempt),
			slog.String("err", err.Error()),
		)
		select {
		case <-ctx.Done():
			logger.LogEvent(ctx, logger.DB, slog.LevelError, "db.connect",
				slog.String("status", "fail"),
				slog.String("db", cfg.Target()),
				slog.Duration("duration", logger.Took(began)),
			)
			return nil, fmt.Errorf("db connect: %w", err)
		case <-time.After(retryInterval):
		}
	}
}

func open(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	n := cfg.poolSize()
	db.SetMaxOpenConns(n)
	db.SetMaxIdleConns(n)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}
