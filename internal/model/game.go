package model

import "time"

// GameID uniquely identifies a game
type GameID string

// GameStatus represents the lifecycle of a game.
// Transitions only go from in_progress to one of the terminal states.
type GameStatus string

const (
	GameStatusInProgress GameStatus = "in_progress"
	GameStatusWon        GameStatus = "won"
	GameStatusDrawn      GameStatus = "drawn"
	GameStatusAbandoned  GameStatus = "abandoned"
)

// Outcome is the result of a finished game from one participant's point of view
type Outcome string

const (
	OutcomeWin     Outcome = "win"
	OutcomeLoss    Outcome = "loss"
	OutcomeDraw    Outcome = "draw"
	OutcomeForfeit Outcome = "forfeit" // won because the opponent left or disconnected
)

// Move is an accepted move
type Move struct {
	Cell     int
	Symbol   Symbol
	Username string
}

// Game is a single tic-tac-toe match between two users
type Game struct {
	ID GameID

	// Players[0] plays X and moves first, Players[1] plays O
	Players [2]string

	Board  Board
	Turn   int // index into Players of who moves next
	Status GameStatus

	Winner      string // set when won or abandoned
	WinningLine []int  // set when won
	LastMove    *Move

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewGame creates an in-progress game; x moves first
func NewGame(id GameID, x, o string, now time.Time) *Game {
	return &Game{
		ID:        id,
		Players:   [2]string{x, o},
		Status:    GameStatusInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasPlayer returns true if the user participates in this game
func (g *Game) HasPlayer(username string) bool {
	return g.Players[0] == username || g.Players[1] == username
}

// SymbolFor returns the user's symbol, or SymbolEmpty for non-participants
func (g *Game) SymbolFor(username string) Symbol {
	switch username {
	case g.Players[0]:
		return SymbolX
	case g.Players[1]:
		return SymbolO
	default:
		return SymbolEmpty
	}
}

// Opponent returns the other participant, or "" for non-participants
func (g *Game) Opponent(username string) string {
	switch username {
	case g.Players[0]:
		return g.Players[1]
	case g.Players[1]:
		return g.Players[0]
	default:
		return ""
	}
}

// CurrentPlayer returns who moves next, or "" once the game is over
func (g *Game) CurrentPlayer() string {
	if g.IsTerminal() {
		return ""
	}
	return g.Players[g.Turn]
}

// IsTerminal returns true once the game has a final status
func (g *Game) IsTerminal() bool {
	return g.Status != GameStatusInProgress
}

// ApplyMove validates and applies a move. A rejected move leaves the game untouched.
func (g *Game) ApplyMove(username string, cell int, now time.Time) error {
	if g.IsTerminal() {
		return NewIllegalMove(RejectGameNotActive)
	}
	if g.Players[g.Turn] != username {
		return NewIllegalMove(RejectWrongTurn)
	}
	if !IsValidCell(cell) {
		return NewIllegalMove(RejectOutOfRange)
	}
	if !g.Board.IsEmpty(cell) {
		return NewIllegalMove(RejectOccupiedCell)
	}

	symbol := g.SymbolFor(username)
	g.Board[cell] = symbol
	g.LastMove = &Move{Cell: cell, Symbol: symbol, Username: username}
	g.UpdatedAt = now

	if winner, line := g.Board.Winner(); winner != SymbolEmpty {
		g.Status = GameStatusWon
		g.Winner = username
		g.WinningLine = line
		return nil
	}
	if g.Board.IsFull() {
		g.Status = GameStatusDrawn
		return nil
	}

	g.Turn = 1 - g.Turn
	return nil
}

// Forfeit abandons an in-progress game on behalf of the leaver.
// It returns false if the game had already finished.
func (g *Game) Forfeit(leaver string, now time.Time) bool {
	if g.IsTerminal() || !g.HasPlayer(leaver) {
		return false
	}
	g.Status = GameStatusAbandoned
	g.Winner = g.Opponent(leaver)
	g.UpdatedAt = now
	return true
}

// OutcomeFor reports the result of a finished game for one participant
func (g *Game) OutcomeFor(username string) Outcome {
	switch g.Status {
	case GameStatusWon:
		if g.Winner == username {
			return OutcomeWin
		}
		return OutcomeLoss
	case GameStatusDrawn:
		return OutcomeDraw
	case GameStatusAbandoned:
		if g.Winner == username {
			return OutcomeForfeit
		}
		return OutcomeLoss
	default:
		return ""
	}
}
