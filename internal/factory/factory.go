package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/tictactoe-server/internal/api"
	"github.com/mcoot/tictactoe-server/internal/config"
	"github.com/mcoot/tictactoe-server/internal/dependencies/clock"
	"github.com/mcoot/tictactoe-server/internal/dependencies/random"
	"github.com/mcoot/tictactoe-server/internal/metrics"
	"github.com/mcoot/tictactoe-server/internal/services/credentials"
	"github.com/mcoot/tictactoe-server/internal/services/game"
	"github.com/mcoot/tictactoe-server/internal/services/matchmaking"
	"github.com/mcoot/tictactoe-server/internal/services/registry"
	"github.com/mcoot/tictactoe-server/internal/services/session"
	"github.com/mcoot/tictactoe-server/internal/storage"
	"github.com/mcoot/tictactoe-server/internal/storage/memory"
	redisstorage "github.com/mcoot/tictactoe-server/internal/storage/redis"
	sqlitestorage "github.com/mcoot/tictactoe-server/internal/storage/sqlite"
	"github.com/mcoot/tictactoe-server/internal/transport/tcp"
	"github.com/mcoot/tictactoe-server/internal/transport/ws"
)

// Storage type constants
const (
	StorageTypeMemory = config.StorageTypeMemory
	StorageTypeRedis  = config.StorageTypeRedis
	StorageTypeSQLite = config.StorageTypeSQLite
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// Services
	Credentials *credentials.Service
	Registry    *registry.Registry
	Queue       *matchmaking.Queue
	Games       *game.Controller
	Sessions    *session.Manager
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sqlite")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLiteConfig holds the database path (required if StorageType is "sqlite")
	SQLiteConfig *sqlitestorage.Config
	// Credentials configures secret hashing (optional)
	Credentials credentials.Config
	// Session configures per-connection rate limits (optional)
	Session session.Config
}

// ConfigFrom maps the environment configuration onto the factory
func ConfigFrom(cfg config.Config, logger *slog.Logger) Config {
	out := Config{
		Logger:      logger,
		StorageType: cfg.Storage.Type,
		Credentials: credentials.Config{BcryptCost: cfg.Storage.BcryptCost},
		Session: session.Config{
			RateLimit: cfg.Session.RateLimit,
			RateBurst: cfg.Session.RateBurst,
		},
	}
	switch cfg.Storage.Type {
	case StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Storage.RedisURL
		out.RedisConfig = &redisCfg
	case StorageTypeSQLite:
		sqliteCfg := sqlitestorage.Config{Path: cfg.Storage.SQLitePath}
		out.SQLiteConfig = &sqliteCfg
	}
	return out
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	sessionCfg := cfg.Session
	if sessionCfg == (session.Config{}) {
		sessionCfg = session.DefaultConfig()
	}

	return newWithDependencies(store, clock.New(), random.New(), cfg.Credentials, sessionCfg, logger), nil
}

func newStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		store, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return store, nil
	case StorageTypeSQLite:
		if cfg.SQLiteConfig == nil {
			return nil, errors.New("SQLiteConfig required when StorageType is sqlite")
		}
		store, err := sqlitestorage.New(*cfg.SQLiteConfig)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return store, nil
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'sqlite'")
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	credentialsCfg credentials.Config,
	sessionCfg session.Config,
	logger *slog.Logger,
) *App {
	m := metrics.New()

	credentialService := credentials.New(store, clk, logger, credentialsCfg)
	connRegistry := registry.New(m, logger)
	queue := matchmaking.New(clk, m, logger)
	games := game.NewController(clk, rnd, m, logger)
	sessions := session.NewManager(credentialService, connRegistry, queue, games, clk, m, logger, sessionCfg)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Metrics:     m,
		Logger:      logger,
		Credentials: credentialService,
		Registry:    connRegistry,
		Queue:       queue,
		Games:       games,
		Sessions:    sessions,
	}
}

// NewTCPServer creates the newline-delimited JSON listener
func (a *App) NewTCPServer(cfg tcp.Config) *tcp.Server {
	return tcp.NewServer(cfg, a.Sessions, a.Clock, a.Random, a.Logger)
}

// NewRouter creates the HTTP handler serving the API, metrics and /ws.
// ctx bounds the lifetime of WebSocket message handling.
func (a *App) NewRouter(ctx context.Context, wsCfg ws.Config) http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:      a.Logger,
		Sessions:    a.Sessions,
		Credentials: a.Credentials,
		Storage:     a.Storage,
		Metrics:     a.Metrics,
		WebSocket:   ws.NewHandler(ctx, wsCfg, a.Sessions, a.Clock, a.Random, a.Logger),
	})
}

// Close drops every session and releases the storage backend
func (a *App) Close() error {
	a.Sessions.Shutdown()
	return a.Storage.Close()
}
