package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends selectable with STORE_BACKEND.
const (
	BackendLibSQL = "libsql"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	HTTPAddr   string     `env:"HTTP_ADDR" envDefault:":3001"`
	CORSOrigin string     `env:"CORS_ORIGIN" envDefault:"*"`
	LogLevel   slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	StaticDir  string     `env:"STATIC_DIR"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"libsql"`
	DBPath       string `env:"DB_PATH" envDefault:"data/playground.db"`
	RedisURL     string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisKey     string `env:"REDIS_KEY" envDefault:"playground"`

	// PeerBuffer is the number of frames queued per connection before the
	// connection is considered too slow and dropped.
	PeerBuffer     int           `env:"PEER_BUFFER" envDefault:"64"`
	PersistTimeout time.Duration `env:"PERSIST_TIMEOUT" envDefault:"5s"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendLibSQL:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for the %s backend", BackendLibSQL)
		}
	case BackendRedis:
		if c.RedisURL == "" || c.RedisKey == "" {
			return fmt.Errorf("REDIS_URL and REDIS_KEY are required for the %s backend", BackendRedis)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.PeerBuffer < 1 {
		return fmt.Errorf("PEER_BUFFER must be positive, got %d", c.PeerBuffer)
	}
	if c.PersistTimeout <= 0 {
		return fmt.Errorf("PERSIST_TIMEOUT must be positive, got %s", c.PersistTimeout)
	}
	if c.CORSOrigin != "*" {
		u, err := url.Parse(c.CORSOrigin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGIN must be * or an origin like http://host:port, got %q", c.CORSOrigin)
		}
	}
	return nil
}
