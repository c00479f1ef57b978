package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeSQLite = "sqlite"
)

// Config is the server configuration, read from the environment
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Session SessionConfig
	Log     LogConfig
}

type ServerConfig struct {
	TCPAddr         string        `env:"TCP_ADDR" env-default:":5555"`
	HTTPAddr        string        `env:"HTTP_ADDR" env-default:":8080"`
	SendBuffer      int           `env:"SEND_BUFFER" env-default:"256"`
	MaxFrameBytes   int           `env:"MAX_FRAME_BYTES" env-default:"65536"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" env-default:"0s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" env-default:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
	AllowedOrigins  []string      `env:"WS_ALLOWED_ORIGINS" env-separator:","`
}

type StorageConfig struct {
	Type       string `env:"STORAGE_TYPE" env-default:"memory"`
	RedisURL   string `env:"REDIS_URL" env-default:"redis://localhost:6379"`
	SQLitePath string `env:"SQLITE_PATH" env-default:"tictactoe.db"`
	BcryptCost int    `env:"BCRYPT_COST" env-default:"10"`
}

type SessionConfig struct {
	// RateLimit is inbound messages per second per connection; 0 disables
	RateLimit float64 `env:"RATE_LIMIT" env-default:"20"`
	RateBurst int     `env:"RATE_BURST" env-default:"40"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"json"`
}

// Load reads the configuration from the environment and validates it
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values cleanenv cannot
func (c Config) Validate() error {
	switch c.Storage.Type {
	case StorageTypeMemory, StorageTypeRedis, StorageTypeSQLite:
	default:
		return fmt.Errorf("STORAGE_TYPE: must be memory, redis or sqlite, got %q", c.Storage.Type)
	}
	if c.Storage.Type == StorageTypeRedis && c.Storage.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when STORAGE_TYPE=redis")
	}
	if c.Storage.Type == StorageTypeSQLite && c.Storage.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required when STORAGE_TYPE=sqlite")
	}
	if c.Server.SendBuffer <= 0 {
		return fmt.Errorf("SEND_BUFFER: must be positive, got %d", c.Server.SendBuffer)
	}
	if c.Server.MaxFrameBytes <= 0 {
		return fmt.Errorf("MAX_FRAME_BYTES: must be positive, got %d", c.Server.MaxFrameBytes)
	}
	if c.Session.RateLimit < 0 {
		return fmt.Errorf("RATE_LIMIT: must not be negative")
	}
	if c.Session.RateLimit > 0 && c.Session.RateBurst <= 0 {
		return fmt.Errorf("RATE_BURST: must be positive when RATE_LIMIT is set")
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LOG_FORMAT: must be json or text, got %q", c.Log.Format)
	}
	return nil
}

func (c LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.Level))); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// NewLogger builds the process logger described by the config
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := c.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}
