package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/tictactoe-server/internal/connection"
	"github.com/mcoot/tictactoe-server/internal/dependencies/clock"
	"github.com/mcoot/tictactoe-server/internal/dependencies/random"
	"github.com/mcoot/tictactoe-server/internal/model"
	"github.com/mcoot/tictactoe-server/internal/protocol"
	"github.com/mcoot/tictactoe-server/internal/transport"
)

// Config holds WebSocket settings
type Config struct {
	MaxFrameBytes  int
	SendBuffer     int
	WriteTimeout   time.Duration
	PingPeriod     time.Duration
	PongWait       time.Duration // must exceed PingPeriod
	AllowedOrigins []string      // empty allows same-origin and non-browser clients; "*" allows all
}

// DefaultConfig returns sensible defaults for WebSocket connections
func DefaultConfig() Config {
	return Config{
		MaxFrameBytes: protocol.DefaultMaxFrameBytes,
		SendBuffer:    connection.DefaultSendBuffer,
		WriteTimeout:  10 * time.Second,
		PingPeriod:    54 * time.Second,
		PongWait:      60 * time.Second,
	}
}

// Handler upgrades HTTP requests and speaks the JSON protocol, one message per text frame
type Handler struct {
	cfg      Config
	upgrader websocket.Upgrader
	handler  transport.Handler
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger
	ctx      context.Context
}

// NewHandler creates a WebSocket Handler. ctx is passed to the session handler
// for every message and should live as long as the server.
func NewHandler(ctx context.Context, cfg Config, handler transport.Handler, clock clock.Clock, random random.Random, logger *slog.Logger) *Handler {
	h := &Handler{
		cfg:     cfg,
		handler: handler,
		clock:   clock,
		random:  random,
		logger:  logger.With(slog.String("component", "ws")),
		ctx:     ctx,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(cfg.AllowedOrigins) > 0 {
		h.upgrader.CheckOrigin = h.checkOrigin
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.Warn("websocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()))
		return
	}

	conn := connection.New(h.random.UUID(), r.RemoteAddr, connection.TransportWebSocket,
		h.cfg.SendBuffer, h.clock.Now(), ws)
	h.handler.Connect(conn)

	go h.writePump(ws, conn)
	h.readPump(ws, conn)
}

func (h *Handler) readPump(ws *websocket.Conn, conn *connection.Conn) {
	defer h.handler.Disconnect(conn)

	_ = ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		msgType, r, err := ws.NextReader()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!transport.IsExpectedClose(err) && !conn.Closed() {
				h.logger.Warn("websocket read error",
					slog.String("connection_id", conn.ID()),
					slog.String("error", err.Error()))
			}
			return
		}
		if msgType != websocket.TextMessage {
			_, _ = io.Copy(io.Discard, r)
			h.handler.Reject(conn, fmt.Errorf("%w: only text frames are supported", model.ErrProtocol))
			continue
		}

		frame, err := readLimited(r, h.cfg.MaxFrameBytes)
		if errors.Is(err, protocol.ErrFrameTooLarge) {
			h.logger.Warn("oversized frame discarded",
				slog.String("connection_id", conn.ID()),
				slog.Int("max_bytes", h.cfg.MaxFrameBytes))
			h.handler.Reject(conn, err)
			continue
		}
		if err != nil {
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))

		h.handler.Handle(h.ctx, conn, frame)
	}
}

func (h *Handler) writePump(ws *websocket.Conn, conn *connection.Conn) {
	ticker := time.NewTicker(h.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame := <-conn.Outbound():
			_ = ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-conn.Done():
			return
		}
	}
}

// readLimited reads one message, discarding it whole if it exceeds max bytes
func readLimited(r io.Reader, max int) ([]byte, error) {
	if max <= 0 {
		max = protocol.DefaultMaxFrameBytes
	}
	frame, err := io.ReadAll(io.LimitReader(r, int64(max)+1))
	if err != nil {
		return nil, err
	}
	if len(frame) > max {
		if _, err := io.Copy(io.Discard, r); err != nil {
			return nil, err
		}
		return nil, protocol.ErrFrameTooLarge
	}
	return frame, nil
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	normalized := strings.ToLower(u.Scheme + "://" + u.Host)
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimRight(allowed, "/"), normalized) {
			return true
		}
	}
	return false
}
