package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/tictactoe-server/internal/api/apierr"
	"github.com/mcoot/tictactoe-server/internal/api/response"
	"github.com/mcoot/tictactoe-server/internal/services/session"
)

// Pinger checks a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusHandler serves health and stats endpoints
type StatusHandler struct {
	sessions *session.Manager
	backend  Pinger
	logger   *slog.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(sessions *session.Manager, backend Pinger, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		sessions: sessions,
		backend:  backend,
		logger:   logger,
	}
}

// Health handles GET /api/v1/health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.backend.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", slog.String("error", err.Error()))
		WriteError(w, apierr.NewUnavailableError("credential storage unreachable"))
		return
	}
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}

// Stats handles GET /api/v1/stats
func (h *StatusHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sessions.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to collect stats", slog.String("error", err.Error()))
		WriteError(w, apierr.NewInternalError())
		return
	}
	response.JSON(w, http.StatusOK, response.StatsFromSession(stats))
}
