package config

import (
	"errors"
	"fmt"
	"time"
)

// Remote backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds runtime settings for the mindshift CLI.
type Config struct {
	LocalDBPath string `env:"MINDSHIFT_LOCAL_DB"`

	RemoteBackend string `env:"MINDSHIFT_REMOTE_BACKEND"`
	PostgresDSN   string `env:"MINDSHIFT_POSTGRES_DSN"`
	RedisAddr     string `env:"MINDSHIFT_REDIS_ADDR"`
	RedisPassword string `env:"MINDSHIFT_REDIS_PASSWORD"`
	RedisDB       int    `env:"MINDSHIFT_REDIS_DB"`

	TokenSecret string        `env:"MINDSHIFT_TOKEN_SECRET"`
	SessionTTL  time.Duration `env:"MINDSHIFT_SESSION_TTL"`

	PushMaxAttempts     int           `env:"MINDSHIFT_PUSH_MAX_ATTEMPTS"`
	PushBackoffBase     time.Duration `env:"MINDSHIFT_PUSH_BACKOFF_BASE"`
	PushBackoffMax      time.Duration `env:"MINDSHIFT_PUSH_BACKOFF_MAX"`
	QueueSize           int           `env:"MINDSHIFT_QUEUE_SIZE"`
	ResubscribeAttempts int           `env:"MINDSHIFT_RESUBSCRIBE_ATTEMPTS"`

	LogFormat string `env:"MINDSHIFT_LOG_FORMAT"`
	Debug     bool   `env:"MINDSHIFT_DEBUG"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.LocalDBPath = "mindshift.db"
	c.RemoteBackend = BackendMemory
	c.RedisAddr = "127.0.0.1:6379"
	c.TokenSecret = "mindshift-local-secret"
	c.SessionTTL = 365 * 24 * time.Hour
	c.PushMaxAttempts = 5
	c.PushBackoffBase = 200 * time.Millisecond
	c.PushBackoffMax = 10 * time.Second
	c.QueueSize = 64
	c.ResubscribeAttempts = 5
	c.LogFormat = "console"
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error
	switch c.RemoteBackend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres backend requires a DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown remote backend %q", c.RemoteBackend))
	}
	if c.LocalDBPath == "" {
		errs = append(errs, errors.New("local db path is empty"))
	}
	if c.TokenSecret == "" {
		errs = append(errs, errors.New("token secret is empty"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if c.PushMaxAttempts < 1 {
		errs = append(errs, errors.New("push attempts must be at least 1"))
	}
	return errors.Join(errs...)
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	parseFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
