// Package config loads the diarybot configuration: the shared core settings
// plus the database, conversation state, images and auth sections.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/diarybot/core/config"
	coredatabase "github.com/m3rciful/diarybot/core/database"
)

const (
	// StateMemory keeps conversations in process memory.
	StateMemory = "memory"
	// StateRedis keeps conversations in Redis so they survive restarts.
	StateRedis = "redis"

	defaultCleanupDelay = 30 * time.Second
	defaultStateTTL     = 30 * time.Minute
)

// RedisConfig addresses the Redis server used by the redis state backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
	Prefix   string `yaml:"prefix" envconfig:"REDIS_PREFIX"`
}

// StateConfig selects where conversations live between updates.
type StateConfig struct {
	Backend string        `yaml:"backend" envconfig:"STATE_BACKEND"`
	TTL     time.Duration `yaml:"ttl" envconfig:"STATE_TTL"`
	Redis   RedisConfig   `yaml:"redis"`
}

// ImagesConfig holds photo references (URLs or file paths) for each screen.
type ImagesConfig struct {
	StartImage string `yaml:"start_image" envconfig:"START_IMG"`
	AuthImage  string `yaml:"auth_image" envconfig:"AUTH_IMG"`
	// StepImages is keyed by step name, e.g. "username" or "loginPassword".
	StepImages map[string]string `yaml:"step_images"`
}

// AuthConfig tunes the registration and login flows.
type AuthConfig struct {
	CleanupDelay  time.Duration `yaml:"cleanup_delay" envconfig:"AUTH_CLEANUP_DELAY"`
	HashOnCapture bool          `yaml:"hash_on_capture" envconfig:"AUTH_HASH_ON_CAPTURE"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	State    StateConfig         `yaml:"state"`
	Images   ImagesConfig        `yaml:"images"`
	Auth     AuthConfig          `yaml:"auth"`
}

// CoreConfig exposes the embedded core configuration to the shared runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path, applies env overrides and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	db := cfg.Database
	if strings.TrimSpace(db.URL) == "" && (strings.TrimSpace(db.Host) == "" || strings.TrimSpace(db.Name) == "") {
		return fmt.Errorf("database.url or database.host and database.name are required")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.State.Backend))
	if backend == "" {
		backend = StateMemory
	}
	switch backend {
	case StateMemory:
	case StateRedis:
		if strings.TrimSpace(cfg.State.Redis.Addr) == "" {
			return fmt.Errorf("state.redis.addr is required when state.backend is 'redis'")
		}
		if !cfg.Auth.HashOnCapture {
			return fmt.Errorf("auth.hash_on_capture must be enabled when state.backend is 'redis'")
		}
		if cfg.State.TTL == 0 {
			cfg.State.TTL = defaultStateTTL
		}
	default:
		return fmt.Errorf("invalid state.backend %q; allowed: memory, redis", cfg.State.Backend)
	}
	cfg.State.Backend = backend
	if cfg.State.TTL < 0 {
		return fmt.Errorf("state.ttl must be >= 0")
	}

	switch {
	case cfg.Auth.CleanupDelay < 0:
		return fmt.Errorf("auth.cleanup_delay must be >= 0")
	case cfg.Auth.CleanupDelay == 0:
		cfg.Auth.CleanupDelay = defaultCleanupDelay
	}
	return nil
}
