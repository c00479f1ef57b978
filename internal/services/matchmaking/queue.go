package matchmaking

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/tictactoe-server/internal/dependencies/clock"
	"github.com/mcoot/tictactoe-server/internal/metrics"
	"github.com/mcoot/tictactoe-server/internal/model"
)

// Entry is a user waiting for an opponent
type Entry struct {
	Username   string
	EnqueuedAt time.Time
}

// Pair is two matched users; First waited longer and plays X
type Pair struct {
	First  Entry
	Second Entry
}

// Queue is a FIFO list of users waiting for a game
type Queue struct {
	mu      sync.Mutex
	entries []Entry

	clock   clock.Clock
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an empty Queue
func New(clock clock.Clock, metrics *metrics.Metrics, logger *slog.Logger) *Queue {
	return &Queue{
		clock:   clock,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "matchmaking")),
	}
}

// Enqueue appends username and returns its 1-based position.
// It fails with model.ErrAlreadyQueuedOrInGame if the user is already waiting.
func (q *Queue) Enqueue(username string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.indexOf(username) >= 0 {
		return 0, model.ErrAlreadyQueuedOrInGame
	}
	q.entries = append(q.entries, Entry{Username: username, EnqueuedAt: q.clock.Now()})
	q.metrics.Queued.Set(float64(len(q.entries)))

	q.logger.Debug("user queued",
		slog.String("username", username),
		slog.Int("position", len(q.entries)))
	return len(q.entries), nil
}

// TryMatch pops the two oldest entries while at least two are waiting
func (q *Queue) TryMatch() []Pair {
	q.mu.Lock()
	defer q.mu.Unlock()

	var pairs []Pair
	for len(q.entries) >= 2 {
		pair := Pair{First: q.entries[0], Second: q.entries[1]}
		q.entries = q.entries[2:]
		pairs = append(pairs, pair)

		q.logger.Debug("users matched",
			slog.String("first", pair.First.Username),
			slog.String("second", pair.Second.Username),
			slog.Duration("first_waited", q.clock.Since(pair.First.EnqueuedAt)))
	}
	if len(q.entries) == 0 {
		// release the backing array once drained
		q.entries = nil
	}
	q.metrics.Queued.Set(float64(len(q.entries)))
	return pairs
}

// RemoveIfWaiting drops username from the queue. It is idempotent.
func (q *Queue) RemoveIfWaiting(username string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOf(username)
	if i < 0 {
		return false
	}
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	q.metrics.Queued.Set(float64(len(q.entries)))
	return true
}

// Position returns the 1-based position of username, or 0 if not waiting
func (q *Queue) Position(username string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.indexOf(username) + 1
}

// Contains returns true if username is waiting
func (q *Queue) Contains(username string) bool {
	return q.Position(username) > 0
}

// Len returns the number of waiting users
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *Queue) indexOf(username string) int {
	for i, e := range q.entries {
		if e.Username == username {
			return i
		}
	}
	return -1
}
