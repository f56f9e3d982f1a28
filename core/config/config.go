// Package config loads the settings every bot built on the core shares:
// Telegram transport, webhook, outbound queue and logging.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN"`
	// AdminID owns the bot and is always a sudoer.
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds of 0 uses the poller default.
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// SenderConfig sizes the outbound call queue. Zero values use its defaults.
type SenderConfig struct {
	QueueSize  int `yaml:"queue_size" envconfig:"TELEGRAM_SEND_QUEUE"`
	Workers    int `yaml:"workers" envconfig:"TELEGRAM_SEND_WORKERS"`
	MaxRetries int `yaml:"max_retries" envconfig:"TELEGRAM_SEND_RETRIES"`
}

type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"` // json or kv
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"` // "1/50", "50" or "0"
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	Profile     string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// Config is the core part of a bot's configuration. Bots embed it inline.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Sender   SenderConfig   `yaml:"sender"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Load reads and validates a config holding only the core sections.
func Load(path string) (*Config, error) {
	cfg := new(Config)
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	if err := Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto decodes the YAML file at path into target, then applies
// environment overrides. A .env file in the working directory is read first
// when present.
func LoadInto(path string, target any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", target); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	return nil
}

// Normalize validates cfg and fills defaults in place.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	tg := &cfg.Telegram
	switch {
	case tg.Token == "":
		return errors.New("telegram token is required")
	case tg.AdminID < 0:
		return errors.New("telegram.admin_id must be >= 0")
	case cfg.Sender.QueueSize < 0 || cfg.Sender.Workers < 0 || cfg.Sender.MaxRetries < 0:
		return errors.New("sender settings must be >= 0")
	}

	mode := strings.ToLower(strings.TrimSpace(tg.RunMode))
	switch mode {
	case "", "polling", RunModeLongpoll:
		if tg.LongPollTimeoutSeconds < 0 {
			return errors.New("telegram.longpoll_timeout_seconds must be >= 0")
		}
		mode = RunModeLongpoll
	case RunModeWebhook:
		wh := cfg.Webhook
		for _, req := range []struct {
			key     string
			missing bool
		}{
			{"webhook.url", strings.TrimSpace(wh.URL) == ""},
			{"webhook.listen", strings.TrimSpace(wh.Listen) == ""},
			{"webhook.port", wh.Port <= 0},
		} {
			if req.missing {
				return fmt.Errorf("%s is required when telegram.run_mode is 'webhook'", req.key)
			}
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", tg.RunMode)
	}
	tg.RunMode = mode
	return nil
}
