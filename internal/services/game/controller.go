package game

import (
	"log/slog"
	"sync"

	"github.com/mcoot/tictactoe-server/internal/dependencies/clock"
	"github.com/mcoot/tictactoe-server/internal/dependencies/random"
	"github.com/mcoot/tictactoe-server/internal/metrics"
	"github.com/mcoot/tictactoe-server/internal/model"
)

const gameIDLength = 10

// Controller owns the live games and referees moves.
// Finished games are dropped from the live set as soon as they end.
type Controller struct {
	mu       sync.RWMutex
	games    map[model.GameID]*model.Game
	byPlayer map[string]model.GameID

	clock   clock.Clock
	random  random.Random
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewController creates a new game Controller
func NewController(clock clock.Clock, random random.Random, metrics *metrics.Metrics, logger *slog.Logger) *Controller {
	return &Controller{
		games:    make(map[model.GameID]*model.Game),
		byPlayer: make(map[string]model.GameID),
		clock:    clock,
		random:   random,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "game")),
	}
}

// CreateGame starts a game between x (who moves first) and o
func (c *Controller) CreateGame(x, o string) (*model.Game, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if x == o {
		return nil, model.ErrAlreadyQueuedOrInGame
	}
	if _, busy := c.byPlayer[x]; busy {
		return nil, model.ErrAlreadyQueuedOrInGame
	}
	if _, busy := c.byPlayer[o]; busy {
		return nil, model.ErrAlreadyQueuedOrInGame
	}

	gameID := c.newGameID()
	game := model.NewGame(gameID, x, o, c.clock.Now())
	c.games[gameID] = game
	c.byPlayer[x] = gameID
	c.byPlayer[o] = gameID

	c.metrics.GamesStarted.Inc()
	c.metrics.LiveGames.Set(float64(len(c.games)))

	c.logger.Info("game created",
		slog.String("game_id", string(gameID)),
		slog.String("x", x),
		slog.String("o", o),
	)
	return game, nil
}

// GetGame retrieves a live game by ID
func (c *Controller) GetGame(gameID model.GameID) (*model.Game, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	game, ok := c.games[gameID]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return game, nil
}

// GameFor returns the live game username is playing in
func (c *Controller) GameFor(username string) (*model.Game, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byPlayer[username]
	if !ok {
		return nil, false
	}
	return c.games[id], true
}

// InGame returns true if username is playing a live game
func (c *Controller) InGame(username string) bool {
	_, ok := c.GameFor(username)
	return ok
}

// MakeMove applies a move for username in their live game. On a rejected
// move the game is returned unchanged along with a *model.IllegalMoveError.
func (c *Controller) MakeMove(username string, cell int) (*model.Game, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.byPlayer[username]
	if !ok {
		return nil, model.ErrNotInGame
	}
	game := c.games[id]

	if err := game.ApplyMove(username, cell, c.clock.Now()); err != nil {
		c.logger.Debug("move rejected",
			slog.String("game_id", string(id)),
			slog.String("username", username),
			slog.Int("cell", cell),
			slog.String("error", err.Error()),
		)
		return game, err
	}

	if game.IsTerminal() {
		c.finish(game)
	}
	return game, nil
}

// Forfeit abandons username's live game in favour of the opponent
func (c *Controller) Forfeit(username string) (*model.Game, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.byPlayer[username]
	if !ok {
		return nil, model.ErrNotInGame
	}
	game := c.games[id]
	if !game.Forfeit(username, c.clock.Now()) {
		// a terminal game is never left in the live set
		return nil, model.ErrNotInGame
	}
	c.finish(game)
	return game, nil
}

// Count returns the number of live games
func (c *Controller) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.games)
}

// Clear drops every live game, used on shutdown
func (c *Controller) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.games)
	c.games = make(map[model.GameID]*model.Game)
	c.byPlayer = make(map[string]model.GameID)
	c.metrics.LiveGames.Set(0)
	return n
}

// finish removes a terminal game from the live set. Caller holds c.mu.
func (c *Controller) finish(game *model.Game) {
	delete(c.games, game.ID)
	for _, p := range game.Players {
		if c.byPlayer[p] == game.ID {
			delete(c.byPlayer, p)
		}
	}

	c.metrics.GamesFinished.WithLabelValues(string(game.Status)).Inc()
	c.metrics.LiveGames.Set(float64(len(c.games)))

	c.logger.Info("game finished",
		slog.String("game_id", string(game.ID)),
		slog.String("status", string(game.Status)),
		slog.String("winner", game.Winner),
		slog.Duration("duration", game.UpdatedAt.Sub(game.CreatedAt)),
	)
}

// newGameID generates an ID not used by any live game. Caller holds c.mu.
func (c *Controller) newGameID() model.GameID {
	for {
		id := model.GameID(c.random.String(gameIDLength, random.GameIDAlphabet))
		if _, exists := c.games[id]; !exists {
			return id
		}
	}
}
