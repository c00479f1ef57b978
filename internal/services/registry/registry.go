package registry

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/mcoot/tictactoe-server/internal/connection"
	"github.com/mcoot/tictactoe-server/internal/metrics"
	"github.com/mcoot/tictactoe-server/internal/model"
)

// Registry maps authenticated usernames to their live connection
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*connection.Conn

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an empty Registry
func New(metrics *metrics.Metrics, logger *slog.Logger) *Registry {
	return &Registry{
		byUser:  make(map[string]*connection.Conn),
		metrics: metrics,
		logger:  logger.With(slog.String("component", "registry")),
	}
}

// Bind associates username with conn. A username has at most one live
// connection: a second bind fails with model.ErrAlreadyLoggedIn.
func (r *Registry) Bind(conn *connection.Conn, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byUser[username]; ok && existing != conn {
		return model.ErrAlreadyLoggedIn
	}
	r.byUser[username] = conn
	r.metrics.Authenticated.Set(float64(len(r.byUser)))
	return nil
}

// Unbind removes the association if it still points at conn
func (r *Registry) Unbind(conn *connection.Conn, username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byUser[username]; !ok || existing != conn {
		return false
	}
	delete(r.byUser, username)
	r.metrics.Authenticated.Set(float64(len(r.byUser)))
	return true
}

// Lookup returns the live connection for username
func (r *Registry) Lookup(username string) (*connection.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.byUser[username]
	return conn, ok
}

// Send queues a frame for username without blocking. A connection whose
// buffer is full is closed; its reader then runs the normal disconnect path.
func (r *Registry) Send(username string, frame []byte) error {
	conn, ok := r.Lookup(username)
	if !ok {
		return model.ErrNotConnected
	}
	return r.deliver(conn, username, frame)
}

// SendConn queues a frame for a connection that may not be bound yet
func (r *Registry) SendConn(conn *connection.Conn, frame []byte) error {
	return r.deliver(conn, "", frame)
}

// Broadcast sends frame to each username and returns how many accepted it
func (r *Registry) Broadcast(usernames []string, frame []byte) int {
	delivered := 0
	for _, username := range usernames {
		if err := r.Send(username, frame); err == nil {
			delivered++
		}
	}
	return delivered
}

// Count returns the number of bound usernames
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

func (r *Registry) deliver(conn *connection.Conn, username string, frame []byte) error {
	err := conn.Enqueue(frame)
	if errors.Is(err, model.ErrSendBufferFull) {
		r.logger.Warn("closing slow connection - send buffer full",
			slog.String("connection_id", conn.ID()),
			slog.String("username", username),
			slog.Int("pending", conn.Pending()))
		r.metrics.SlowConsumers.Inc()
		_ = conn.Close()
	}
	return err
}
