package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/tictactoe-server/internal/connection"
	"github.com/mcoot/tictactoe-server/internal/model"
	"github.com/mcoot/tictactoe-server/internal/protocol"
	"github.com/mcoot/tictactoe-server/internal/services/matchmaking"
)

// usernameOf returns the bound username, or "" for unauthenticated or closed connections
func (m *Manager) usernameOf(conn *connection.Conn) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.peers[conn.ID()]
	if !ok {
		return "", false
	}
	return p.username, true
}

func (m *Manager) handleRegister(ctx context.Context, conn *connection.Conn, msg protocol.Register) {
	username, ok := m.usernameOf(conn)
	if !ok {
		return
	}
	if username != "" {
		m.replyError(conn, model.ErrAlreadyAuthenticated)
		return
	}

	user, err := m.credentials.Register(ctx, msg.Username, msg.Secret)
	if err != nil {
		m.replyError(conn, err)
		return
	}
	m.reply(conn, protocol.RegisterResponse{
		Username: user.Username,
		Message:  "Registration successful",
	})
}

func (m *Manager) handleLogin(ctx context.Context, conn *connection.Conn, msg protocol.Login) {
	username, ok := m.usernameOf(conn)
	if !ok {
		return
	}
	if username != "" {
		m.replyError(conn, model.ErrAlreadyAuthenticated)
		return
	}

	user, err := m.credentials.Verify(ctx, msg.Username, msg.Secret)
	if err != nil {
		m.replyError(conn, err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.peers[conn.ID()]
	if !ok {
		// disconnected while the secret was being checked
		return
	}
	if p.username != "" {
		m.replyError(conn, model.ErrAlreadyAuthenticated)
		return
	}
	if err := m.registry.Bind(conn, user.Username); err != nil {
		m.replyError(conn, err)
		return
	}
	p.username = user.Username

	m.logger.Info("user logged in",
		slog.String("connection_id", conn.ID()),
		slog.String("username", user.Username))
	m.reply(conn, protocol.LoginResponse{
		Username: user.Username,
		Message:  "Login successful",
	})
}

func (m *Manager) handleCreateGame(conn *connection.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	username, ok := m.authenticated(conn)
	if !ok {
		return
	}
	if m.queue.Contains(username) || m.games.InGame(username) {
		m.replyError(conn, model.ErrAlreadyQueuedOrInGame)
		return
	}

	position, err := m.queue.Enqueue(username)
	if err != nil {
		m.replyError(conn, err)
		return
	}

	matched := false
	for _, pair := range m.queue.TryMatch() {
		m.startGame(pair)
		if pair.First.Username == username || pair.Second.Username == username {
			matched = true
		}
	}
	if !matched {
		m.reply(conn, protocol.Waiting{
			Position: position,
			Message:  "Waiting for an opponent",
		})
	}
}

// startGame creates the game for a matched pair. Caller holds m.mu.
func (m *Manager) startGame(pair matchmaking.Pair) {
	g, err := m.games.CreateGame(pair.First.Username, pair.Second.Username)
	if err != nil {
		m.logger.Error("failed to start matched game",
			slog.String("x", pair.First.Username),
			slog.String("o", pair.Second.Username),
			slog.String("error", err.Error()))
		for _, u := range []string{pair.First.Username, pair.Second.Username} {
			m.send(u, protocol.ErrorFor(err))
		}
		return
	}

	for _, u := range g.Players {
		m.send(u, protocol.GameStart{
			GameID:       string(g.ID),
			YourSymbol:   string(g.SymbolFor(u)),
			OpponentName: g.Opponent(u),
			Board:        g.Board.Strings(),
			NextTurn:     g.CurrentPlayer(),
		})
	}
}

func (m *Manager) handleMove(conn *connection.Conn, msg protocol.Move) {
	m.mu.Lock()
	defer m.mu.Unlock()

	username, ok := m.authenticated(conn)
	if !ok {
		return
	}

	g, err := m.games.MakeMove(username, msg.CellIndex)
	if err != nil {
		if errors.Is(err, model.ErrNotInGame) && m.queue.Contains(username) {
			// waiting for an opponent: there is a session but no active game yet
			err = model.NewIllegalMove(model.RejectGameNotActive)
		}
		m.replyError(conn, err)
		return
	}

	update := protocol.GameUpdate{
		GameID:   string(g.ID),
		Board:    g.Board.Strings(),
		NextTurn: g.CurrentPlayer(),
		LastMove: protocol.LastMove{
			CellIndex: g.LastMove.Cell,
			Symbol:    string(g.LastMove.Symbol),
			By:        g.LastMove.Username,
		},
	}
	for _, u := range g.Players {
		m.send(u, update)
	}
	if g.IsTerminal() {
		for _, u := range g.Players {
			m.send(u, gameOverFor(g, u, ""))
		}
	}
}

func (m *Manager) handleChat(conn *connection.Conn, msg protocol.ChatRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()

	username, ok := m.authenticated(conn)
	if !ok {
		return
	}
	g, inGame := m.games.GameFor(username)
	if !inGame {
		m.replyError(conn, model.ErrNotInGame)
		return
	}

	m.send(g.Opponent(username), protocol.Chat{
		FromUsername: username,
		Text:         msg.Text,
		Timestamp:    m.clock.Now(),
	})
}

func (m *Manager) handleLeaveGame(conn *connection.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	username, ok := m.authenticated(conn)
	if !ok {
		return
	}

	g, err := m.games.Forfeit(username)
	if err != nil {
		if m.queue.RemoveIfWaiting(username) {
			m.reply(conn, protocol.Waiting{Position: 0, Message: "Matchmaking cancelled"})
			return
		}
		m.replyError(conn, err)
		return
	}

	opponent := g.Opponent(username)
	m.send(opponent, gameOverFor(g, opponent, protocol.ReasonOpponentLeft))
	m.send(username, gameOverFor(g, username, protocol.ReasonLeftGame))
}

// authenticated returns the bound username, replying not_authenticated if
// there is none. Caller holds m.mu.
func (m *Manager) authenticated(conn *connection.Conn) (string, bool) {
	p, ok := m.peers[conn.ID()]
	if !ok {
		return "", false
	}
	if p.username == "" {
		m.replyError(conn, model.ErrNotAuthenticated)
		return "", false
	}
	return p.username, true
}

func gameOverFor(g *model.Game, username, reason string) protocol.GameOver {
	return protocol.GameOver{
		GameID:      string(g.ID),
		Outcome:     string(g.OutcomeFor(username)),
		WinningLine: g.WinningLine,
		Winner:      g.Winner,
		Reason:      reason,
	}
}
