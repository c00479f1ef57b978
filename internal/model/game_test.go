package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type GameSuite struct {
	suite.Suite
	now  time.Time
	game *Game
}

func TestGameSuite(t *testing.T) {
	suite.Run(t, new(GameSuite))
}

func (s *GameSuite) SetupTest() {
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.game = NewGame("g1", "alice", "bob", s.now)
}

func (s *GameSuite) play(moves ...int) {
	for _, cell := range moves {
		s.Require().NoError(s.game.ApplyMove(s.game.CurrentPlayer(), cell, s.now))
	}
}

func (s *GameSuite) requireRejection(err error, reason MoveRejection) {
	s.Require().Error(err)
	s.ErrorIs(err, ErrIllegalMove)
	var illegal *IllegalMoveError
	s.Require().True(errors.As(err, &illegal))
	s.Equal(reason, illegal.Reason)
}

func (s *GameSuite) TestNewGameXMovesFirst() {
	s.Equal(GameStatusInProgress, s.game.Status)
	s.Equal("alice", s.game.CurrentPlayer())
	s.Equal(SymbolX, s.game.SymbolFor("alice"))
	s.Equal(SymbolO, s.game.SymbolFor("bob"))
	s.Equal(SymbolEmpty, s.game.SymbolFor("carol"))
}

func (s *GameSuite) TestOpponent() {
	s.Equal("bob", s.game.Opponent("alice"))
	s.Equal("alice", s.game.Opponent("bob"))
	s.Empty(s.game.Opponent("carol"))
}

func (s *GameSuite) TestApplyMoveAlternatesTurns() {
	s.Require().NoError(s.game.ApplyMove("alice", 4, s.now))
	s.Equal(SymbolX, s.game.Board[4])
	s.Equal("bob", s.game.CurrentPlayer())

	s.Require().NoError(s.game.ApplyMove("bob", 0, s.now))
	s.Equal(SymbolO, s.game.Board[0])
	s.Equal("alice", s.game.CurrentPlayer())

	s.Require().NotNil(s.game.LastMove)
	s.Equal(Move{Cell: 0, Symbol: SymbolO, Username: "bob"}, *s.game.LastMove)
}

func (s *GameSuite) TestWrongTurnRejected() {
	err := s.game.ApplyMove("bob", 0, s.now)
	s.requireRejection(err, RejectWrongTurn)
	s.True(s.game.Board.IsEmpty(0))
	s.Equal("alice", s.game.CurrentPlayer())
}

func (s *GameSuite) TestNonParticipantRejectedAsWrongTurn() {
	err := s.game.ApplyMove("carol", 0, s.now)
	s.requireRejection(err, RejectWrongTurn)
}

func (s *GameSuite) TestOutOfRangeRejected() {
	s.requireRejection(s.game.ApplyMove("alice", 9, s.now), RejectOutOfRange)
	s.requireRejection(s.game.ApplyMove("alice", -1, s.now), RejectOutOfRange)
	s.Equal("alice", s.game.CurrentPlayer())
}

func (s *GameSuite) TestOccupiedCellRejected() {
	s.play(4)
	err := s.game.ApplyMove("bob", 4, s.now)
	s.requireRejection(err, RejectOccupiedCell)
	s.Equal(SymbolX, s.game.Board[4])
	s.Equal("bob", s.game.CurrentPlayer())
}

func (s *GameSuite) TestWrongTurnCheckedBeforeRange() {
	err := s.game.ApplyMove("bob", 42, s.now)
	s.requireRejection(err, RejectWrongTurn)
}

func (s *GameSuite) TestRowWin() {
	// X: 0,1,2  O: 3,4
	s.play(0, 3, 1, 4, 2)
	s.Equal(GameStatusWon, s.game.Status)
	s.Equal("alice", s.game.Winner)
	s.Equal([]int{0, 1, 2}, s.game.WinningLine)
	s.Equal(OutcomeWin, s.game.OutcomeFor("alice"))
	s.Equal(OutcomeLoss, s.game.OutcomeFor("bob"))
	s.Empty(s.game.CurrentPlayer())
}

func (s *GameSuite) TestColumnWinForO() {
	s.play(0, 1, 3, 4, 8, 7)
	s.Equal(GameStatusWon, s.game.Status)
	s.Equal("bob", s.game.Winner)
	s.Equal([]int{1, 4, 7}, s.game.WinningLine)
}

func (s *GameSuite) TestAntiDiagonalWin() {
	s.play(2, 0, 4, 1, 6)
	s.Equal(GameStatusWon, s.game.Status)
	s.Equal([]int{2, 4, 6}, s.game.WinningLine)
}

func (s *GameSuite) TestDraw() {
	// X O X
	// X O O
	// O X X
	s.play(0, 1, 2, 4, 3, 5, 7, 6, 8)
	s.Equal(GameStatusDrawn, s.game.Status)
	s.Empty(s.game.Winner)
	s.Nil(s.game.WinningLine)
	s.Equal(OutcomeDraw, s.game.OutcomeFor("alice"))
	s.Equal(OutcomeDraw, s.game.OutcomeFor("bob"))
}

func (s *GameSuite) TestWinOnLastCellIsNotDraw() {
	// X X O
	// O X X
	// O O X
	s.play(0, 2, 1, 3, 4, 6, 5, 7, 8)
	s.Equal(GameStatusWon, s.game.Status)
	s.Equal("alice", s.game.Winner)
	s.Equal([]int{0, 4, 8}, s.game.WinningLine)
}

func (s *GameSuite) TestMoveAfterWinRejected() {
	s.play(0, 3, 1, 4, 2)
	err := s.game.ApplyMove("bob", 5, s.now)
	s.requireRejection(err, RejectGameNotActive)
	s.True(s.game.Board.IsEmpty(5))
}

func (s *GameSuite) TestForfeit() {
	s.play(4)
	s.True(s.game.Forfeit("alice", s.now))
	s.Equal(GameStatusAbandoned, s.game.Status)
	s.Equal("bob", s.game.Winner)
	s.Equal(OutcomeForfeit, s.game.OutcomeFor("bob"))
	s.Equal(OutcomeLoss, s.game.OutcomeFor("alice"))

	s.requireRejection(s.game.ApplyMove("bob", 0, s.now), RejectGameNotActive)
}

func (s *GameSuite) TestForfeitAfterFinishIsNoop() {
	s.play(0, 3, 1, 4, 2)
	s.False(s.game.Forfeit("bob", s.now))
	s.Equal(GameStatusWon, s.game.Status)
	s.Equal("alice", s.game.Winner)
}

func (s *GameSuite) TestForfeitByNonParticipantIsNoop() {
	s.False(s.game.Forfeit("carol", s.now))
	s.Equal(GameStatusInProgress, s.game.Status)
}
