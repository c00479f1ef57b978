package session

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"golang.org/x/time/rate"

	"github.com/mcoot/tictactoe-server/internal/connection"
	"github.com/mcoot/tictactoe-server/internal/dependencies/clock"
	"github.com/mcoot/tictactoe-server/internal/metrics"
	"github.com/mcoot/tictactoe-server/internal/model"
	"github.com/mcoot/tictactoe-server/internal/protocol"
	"github.com/mcoot/tictactoe-server/internal/services/credentials"
	"github.com/mcoot/tictactoe-server/internal/services/game"
	"github.com/mcoot/tictactoe-server/internal/services/matchmaking"
	"github.com/mcoot/tictactoe-server/internal/services/registry"
)

// Config holds per-connection limits
type Config struct {
	// RateLimit is the sustained inbound messages per second per connection; 0 disables limiting
	RateLimit float64
	RateBurst int
}

// DefaultConfig returns default session configuration
func DefaultConfig() Config {
	return Config{
		RateLimit: 20,
		RateBurst: 40,
	}
}

// peer is the per-connection protocol state
type peer struct {
	conn     *connection.Conn
	username string // empty until login
	limiter  *rate.Limiter
}

// Manager is the authoritative owner of connections, the matchmaking queue
// and live games. A single mutex serializes every state transition; the
// registry, queue and game controller locks are only taken while holding it.
// Secret hashing and storage I/O happen outside the lock.
type Manager struct {
	mu    sync.Mutex
	peers map[string]*peer // by connection id

	credentials *credentials.Service
	registry    *registry.Registry
	queue       *matchmaking.Queue
	games       *game.Controller

	clock   clock.Clock
	metrics *metrics.Metrics
	logger  *slog.Logger
	cfg     Config
}

// NewManager creates a new session Manager
func NewManager(
	credentials *credentials.Service,
	registry *registry.Registry,
	queue *matchmaking.Queue,
	games *game.Controller,
	clock clock.Clock,
	metrics *metrics.Metrics,
	logger *slog.Logger,
	cfg Config,
) *Manager {
	return &Manager{
		peers:       make(map[string]*peer),
		credentials: credentials,
		registry:    registry,
		queue:       queue,
		games:       games,
		clock:       clock,
		metrics:     metrics,
		logger:      logger.With(slog.String("component", "session")),
		cfg:         cfg,
	}
}

// Connect starts tracking a freshly accepted connection
func (m *Manager) Connect(conn *connection.Conn) {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if m.cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(m.cfg.RateLimit), m.cfg.RateBurst)
	}

	m.mu.Lock()
	m.peers[conn.ID()] = &peer{conn: conn, limiter: limiter}
	count := len(m.peers)
	m.mu.Unlock()

	m.metrics.Connections.Set(float64(count))
	m.logger.Info("client connected",
		slog.String("connection_id", conn.ID()),
		slog.String("remote_addr", conn.RemoteAddr()),
		slog.String("transport", conn.Transport()),
		slog.Int("total_connections", count))
}

// Handle processes one inbound frame from conn. Frames arriving after the
// connection's cleanup has started are ignored.
func (m *Manager) Handle(ctx context.Context, conn *connection.Conn, frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("panic handling message",
				slog.String("connection_id", conn.ID()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			m.replyError(conn, fmt.Errorf("panic: %v", r))
		}
	}()

	p, ok := m.lookup(conn)
	if !ok {
		return
	}
	if !p.limiter.Allow() {
		m.replyError(conn, model.ErrRateLimited)
		return
	}

	msg, err := protocol.DecodeInbound(frame)
	if err != nil {
		m.replyError(conn, err)
		return
	}
	m.metrics.Messages.WithLabelValues(msg.Type()).Inc()

	switch msg := msg.(type) {
	case protocol.Register:
		m.handleRegister(ctx, conn, msg)
	case protocol.Login:
		m.handleLogin(ctx, conn, msg)
	case protocol.CreateGame:
		m.handleCreateGame(conn)
	case protocol.Move:
		m.handleMove(conn, msg)
	case protocol.ChatRequest:
		m.handleChat(conn, msg)
	case protocol.LeaveGame:
		m.handleLeaveGame(conn)
	default:
		m.replyError(conn, fmt.Errorf("%w: unsupported message %s", model.ErrProtocol, msg.Type()))
	}
}

// Reject reports a transport-level error (such as an oversized frame) to the
// client without closing the connection
func (m *Manager) Reject(conn *connection.Conn, err error) {
	if _, ok := m.lookup(conn); !ok {
		return
	}
	m.replyError(conn, err)
}

// Disconnect runs cleanup for conn exactly once: the user is unbound, removed
// from the queue, and any live game is forfeited to the opponent.
func (m *Manager) Disconnect(conn *connection.Conn) {
	m.mu.Lock()
	p, ok := m.peers[conn.ID()]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.peers, conn.ID())
	count := len(m.peers)

	if p.username != "" {
		m.registry.Unbind(conn, p.username)
		m.queue.RemoveIfWaiting(p.username)
		if g, err := m.games.Forfeit(p.username); err == nil {
			opponent := g.Opponent(p.username)
			m.send(opponent, gameOverFor(g, opponent, protocol.ReasonOpponentDisconnected))
		}
	}
	m.mu.Unlock()

	_ = conn.Close()
	m.metrics.Connections.Set(float64(count))
	m.logger.Info("client disconnected",
		slog.String("connection_id", conn.ID()),
		slog.String("username", p.username),
		slog.Duration("connection_duration", m.clock.Since(conn.ConnectedAt())),
		slog.Int("total_connections", count))
}

// Stats is a point-in-time view of the server
type Stats struct {
	Connections     int `json:"connections"`
	Authenticated   int `json:"authenticated"`
	Queued          int `json:"queued"`
	LiveGames       int `json:"liveGames"`
	RegisteredUsers int `json:"registeredUsers"`
}

// Stats returns current counts. Registered users come from the credential
// backend and are read outside the lock.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	stats := Stats{
		Connections:   len(m.peers),
		Authenticated: m.registry.Count(),
		Queued:        m.queue.Len(),
		LiveGames:     m.games.Count(),
	}
	m.mu.Unlock()

	users, err := m.credentials.CountUsers(ctx)
	if err != nil {
		return stats, fmt.Errorf("count users: %w", err)
	}
	stats.RegisteredUsers = users
	return stats, nil
}

// Shutdown drops all live games and closes every connection
func (m *Manager) Shutdown() {
	m.mu.Lock()
	conns := make([]*connection.Conn, 0, len(m.peers))
	for id, p := range m.peers {
		if p.username != "" {
			m.registry.Unbind(p.conn, p.username)
			m.queue.RemoveIfWaiting(p.username)
		}
		conns = append(conns, p.conn)
		delete(m.peers, id)
	}
	dropped := m.games.Clear()
	m.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
	m.metrics.Connections.Set(0)
	m.logger.Info("session manager stopped",
		slog.Int("closed_connections", len(conns)),
		slog.Int("dropped_games", dropped))
}

func (m *Manager) lookup(conn *connection.Conn) (*peer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.peers[conn.ID()]
	return p, ok
}

// reply queues a message to the connection itself
func (m *Manager) reply(conn *connection.Conn, msg protocol.Outbound) {
	_ = m.registry.SendConn(conn, protocol.MustEncode(msg))
}

// send queues a message to a bound user. Caller holds m.mu.
func (m *Manager) send(username string, msg protocol.Outbound) {
	if err := m.registry.Send(username, protocol.MustEncode(msg)); err != nil {
		m.logger.Debug("message not delivered",
			slog.String("username", username),
			slog.String("type", msg.Type()),
			slog.String("error", err.Error()))
	}
}

func (m *Manager) replyError(conn *connection.Conn, err error) {
	reply := protocol.ErrorFor(err)
	m.metrics.Errors.WithLabelValues(reply.Code).Inc()
	if reply.Code == protocol.CodeInternalError {
		m.logger.Error("request failed",
			slog.String("connection_id", conn.ID()),
			slog.String("error", err.Error()))
	} else {
		m.logger.Debug("request rejected",
			slog.String("connection_id", conn.ID()),
			slog.String("code", reply.Code),
			slog.String("error", err.Error()))
	}
	m.reply(conn, reply)
}
