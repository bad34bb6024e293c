package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/Skotchmaster/tekxchange/internal/hash"
)

type Config struct {
	HTTPAddr string `env:"AUTH_HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseURL string `env:"DATABASE_URL"`

	RedisAddr        string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword    string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB" envDefault:"0"`
	RefreshKeyPrefix string        `env:"AUTH_REFRESH_KEY_PREFIX"`
	RefreshCacheTTL  time.Duration `env:"AUTH_REFRESH_CACHE_TTL" envDefault:"1h"`

	KeyPath            string `env:"AUTH_KEY_PATH" envDefault:"keys/ed25519.key"`
	KeyAllowRegenerate bool   `env:"AUTH_KEY_ALLOW_REGENERATE" envDefault:"false"`

	AccessTTL        time.Duration `env:"AUTH_ACCESS_TTL" envDefault:"15m"`
	RefreshTolerance time.Duration `env:"AUTH_REFRESH_TOLERANCE" envDefault:"168h"`
	RefreshCookieTTL time.Duration `env:"AUTH_REFRESH_COOKIE_TTL" envDefault:"720h"`
	CookieSecure     bool          `env:"AUTH_COOKIE_SECURE" envDefault:"true"`

	KafkaBrokers   []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaUserTopic string   `env:"KAFKA_USER_TOPIC" envDefault:"user_events"`

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	Argon2MemoryKiB   uint32 `env:"AUTH_ARGON2_MEMORY_KIB"`
	Argon2Iterations  uint32 `env:"AUTH_ARGON2_ITERATIONS"`
	Argon2Parallelism uint8  `env:"AUTH_ARGON2_PARALLELISM"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.KeyPath == "" {
		errs = append(errs, errors.New("AUTH_KEY_PATH is required"))
	}
	if c.AccessTTL <= 0 {
		errs = append(errs, fmt.Errorf("AUTH_ACCESS_TTL must be positive, got %s", c.AccessTTL))
	}
	if c.RefreshTolerance < 0 {
		errs = append(errs, fmt.Errorf("AUTH_REFRESH_TOLERANCE must not be negative, got %s", c.RefreshTolerance))
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

// HashParams applies the argon2 overrides on top of hash.DefaultParams.
func (c *Config) HashParams() hash.Params {
	p := hash.DefaultParams()
	if c.Argon2MemoryKiB > 0 {
		p.MemoryKiB = c.Argon2MemoryKiB
	}
	if c.Argon2Iterations > 0 {
		p.Iterations = c.Argon2Iterations
	}
	if c.Argon2Parallelism > 0 {
		p.Parallelism = c.Argon2Parallelism
	}
	return p
}

func (c *Config) SeedAdmin() bool {
	return c.AdminEmail != "" && c.AdminPassword != ""
}
