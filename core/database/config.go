package database

import (
	"net/url"
	"strings"
	"time"
)

const (
	defaultMaxConnections = 10
	defaultConnectTimeout = 30 * time.Second
)

// Config holds the Postgres settings. URL, when set, takes precedence over
// the discrete fields.
type Config struct {
	URL            string `yaml:"url" envconfig:"DATABASE_URL"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	// ConnectTimeout bounds how long boot waits for the server to accept connections.
	ConnectTimeout time.Duration `yaml:"connect_timeout" envconfig:"DB_CONNECT_TIMEOUT"`
	// MigrationsDir reads migrations from disk instead of the embedded set.
	MigrationsDir string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// DSN is a postgres:// URL understood by lib/pq and golang-migrate alike.
func (c Config) DSN() string {
	if u := strings.TrimSpace(c.URL); u != "" {
		return u
	}
	mode := c.SSLMode
	if mode == "" {
		mode = "disable"
	}
	q := url.Values{"sslmode": {mode}}
	return (&url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: q.Encode(),
	}).String()
}

// Target names the server and database without credentials, for logs.
func (c Config) Target() string {
	raw := strings.TrimSpace(c.URL)
	if raw == "" {
		return c.Host + ":" + c.Port + "/" + c.Name
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "unparseable-url"
	}
	return u.Host + u.Path
}

func (c Config) poolSize() int {
	if c.MaxConnections > 0 {
		return c.MaxConnections
	}
	return defaultMaxConnections
}

func (c Config) connectTimeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return defaultConnectTimeout
}
