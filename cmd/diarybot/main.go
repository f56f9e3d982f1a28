package main

import (
	"context"
	"fmt"
	"log"

	"github.com/m3rciful/diarybot/core/bootstrap"
	corecmd "github.com/m3rciful/diarybot/core/cmd"
	"github.com/m3rciful/diarybot/internal/bot"
	"github.com/m3rciful/diarybot/internal/config"
	"github.com/m3rciful/diarybot/internal/store"
	"github.com/m3rciful/diarybot/migrations"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "configs/config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: func(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			cfg, ok := carrier.(*config.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", carrier)
			}
			return bootstrapApp(context.Background(), cfg)
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}

func bootstrapApp(ctx context.Context, cfg *config.Config) (*bot.App, error) {
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     cfg.CoreConfig(),
		Database:   cfg.Database,
		Migrations: migrations.FS,
		Modules: bootstrap.Modules{
			Seeders: []bootstrap.Seeder{
				bootstrap.SeederFunc(store.SudoSeeder(cfg.Telegram.AdminID)),
			},
		},
	})
	if err != nil {
		return nil, err
	}

	app, err := bot.New(ctx, cfg, store.NewPostgres(res.DB))
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}
	app.OnClose(res.DB.Close)
	return app, nil
}
