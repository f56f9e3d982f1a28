package database

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/diarybot/core/logger"
)

const defaultMigrationsDir = "migrations"

// MigrateFS applies pending up migrations found at the root of src. A nil src,
// or a configured MigrationsDir, reads from disk instead.
func MigrateFS(cfg Config, src fs.FS) error {
	ctx := logger.Background()
	fail := func(stage string, err error) error {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "db.migrate",
			slog.String("status", "fail"),
			slog.String("op", stage),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("migrations %s: %w", stage, err)
	}

	origin := "embedded"
	if src == nil || cfg.MigrationsDir != "" {
		dir := cfg.MigrationsDir
		if strings.TrimSpace(dir) == "" {
			dir = defaultMigrationsDir
		}
		src, origin = os.DirFS(dir), dir
	}

	files, err := upFiles(src)
	if err != nil {
		return fail("resolve", err)
	}
	preview, cut := logger.SummarizeStrings(files, 6)
	logger.LogEvent(ctx, logger.MIG, slog.LevelDebug, "resolve",
		slog.String("path", origin),
		slog.Int("files_total", len(files)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", cut),
	)

	driver, err := iofs.New(src, ".")
	if err != nil {
		return fail("source", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", driver, cfg.DSN())
	if err != nil {
		return fail("init", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.LogEvent(ctx, logger.MIG, slog.LevelWarn, "db.migrate",
				slog.String("op", "close"),
				slog.String("err", errors.Join(srcErr, dbErr).Error()),
			)
		}
	}()

	from, _, _ := m.Version()
	began := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fail("apply", err)
	}
	to, _, _ := m.Version()

	applied := appliedBetween(files, uint64(from), uint64(to))
	if len(applied) > 0 {
		names, cut := logger.SummarizeStrings(applied, 6)
		logger.LogEvent(ctx, logger.MIG, slog.LevelDebug, "apply",
			slog.Int("files_total", len(applied)),
			slog.String("files_preview", names),
			slog.Bool("files_truncated", cut),
		)
	}
	logger.LogEvent(ctx, logger.MIG, slog.LevelInfo, "summary",
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", logger.Took(began)),
	)
	return nil
}

// upFiles lists the *.up.sql files at the root of src in version order.
func upFiles(src fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(src, ".")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, path.Base(e.Name()))
		}
	}
	slices.Sort(names)
	return names, nil
}

// versionOf reads the numeric prefix of "000002_name.up.sql"; 0 when absent.
func versionOf(name string) uint64 {
	head, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(head, 10, 64)
	return v
}

func appliedBetween(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if v := versionOf(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
