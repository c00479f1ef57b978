package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/tictactoe-server/internal/api/handler"
	"github.com/mcoot/tictactoe-server/internal/api/middleware"
	"github.com/mcoot/tictactoe-server/internal/metrics"
	"github.com/mcoot/tictactoe-server/internal/services/credentials"
	"github.com/mcoot/tictactoe-server/internal/services/session"
	"github.com/mcoot/tictactoe-server/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Sessions    *session.Manager
	Credentials *credentials.Service
	Storage     storage.Storage
	Metrics     *metrics.Metrics
	// WebSocket serves the game protocol at /ws; omitted when nil
	WebSocket http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	userHandler := handler.NewUserHandler(cfg.Credentials)
	statusHandler := handler.NewStatusHandler(cfg.Sessions, cfg.Storage, cfg.Logger)

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	r.Use(loggingMiddleware)
	r.Use(recoveryMiddleware)

	if cfg.WebSocket != nil {
		r.Handle("/ws", cfg.WebSocket).Methods(http.MethodGet)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/users", userHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/health", statusHandler.Health).Methods(http.MethodGet)
	api.HandleFunc("/stats", statusHandler.Stats).Methods(http.MethodGet)

	return r
}
