// Package bootstrap prepares the infrastructure a bot needs before it can take
// updates: logging, the database connection, schema and seed data.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/diarybot/core/config"
	coredatabase "github.com/m3rciful/diarybot/core/database"
	"github.com/m3rciful/diarybot/core/logger"
)

// Seeder writes reference data after migrations. Seeders must be idempotent;
// they run on every boot.
type Seeder interface {
	Seed(ctx context.Context, db *sqlx.DB) error
}

type SeederFunc func(ctx context.Context, db *sqlx.DB) error

func (f SeederFunc) Seed(ctx context.Context, db *sqlx.DB) error { return f(ctx, db) }

type Modules struct {
	Seeders []Seeder
}

// Options lists the steps of Run. The function fields default to the real
// implementations and exist for tests.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error

	// Migrations is the default migration source; nil reads Database.MigrationsDir.
	Migrations fs.FS

	Modules Modules
}

// Result owns the opened connection pool; the caller closes it.
type Result struct {
	DB *sqlx.DB
}

// Run performs the steps in order and stops at the first failure, closing the
// pool if it was already opened.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	if opts.LoggerInit == nil {
		opts.LoggerInit = logger.InitLogger
	}
	if opts.Connect == nil {
		opts.Connect = coredatabase.Connect
	}
	if opts.Migrate == nil {
		src := opts.Migrations
		opts.Migrate = func(cfg coredatabase.Config) error { return coredatabase.MigrateFS(cfg, src) }
	}

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}
	db, err := opts.Connect(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	if err := opts.Migrate(opts.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	if err := seed(ctx, db, opts.Modules.Seeders); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Result{DB: db}, nil
}

func seed(ctx context.Context, db *sqlx.DB, seeders []Seeder) error {
	for i, s := range seeders {
		if s == nil {
			continue
		}
		began := time.Now()
		err := s.Seed(ctx, db)
		attrs := []slog.Attr{slog.Int("seeder", i), slog.Duration("duration", logger.Took(began))}
		if err != nil {
			logger.LogEvent(ctx, logger.SEED, slog.LevelError, "db.seed",
				append(attrs, slog.String("status", "fail"), slog.String("err", err.Error()))...)
			return fmt.Errorf("bootstrap: seeder %d failed: %w", i, err)
		}
		logger.LogEvent(ctx, logger.SEED, slog.LevelDebug, "db.seed", append(attrs, slog.String("status", "ok"))...)
	}
	return nil
}
