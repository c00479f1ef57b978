package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Credential errors
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")

	// Session errors
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	ErrAlreadyLoggedIn      = errors.New("user is already logged in on another connection")
	ErrConnectionClosed     = errors.New("connection is closed")

	// Matchmaking errors
	ErrAlreadyQueuedOrInGame = errors.New("already queued or in a game")

	// Game errors
	ErrGameNotFound = errors.New("game not found")
	ErrNotInGame    = errors.New("not in a game")
	ErrIllegalMove  = errors.New("illegal move")

	// Delivery errors
	ErrNotConnected   = errors.New("user has no live connection")
	ErrSendBufferFull = errors.New("send buffer full")

	// Protocol errors
	ErrProtocol    = errors.New("protocol error")
	ErrRateLimited = errors.New("rate limited")
)

// MoveRejection explains why a move was refused
type MoveRejection string

const (
	RejectGameNotActive MoveRejection = "game_not_active"
	RejectWrongTurn     MoveRejection = "wrong_turn"
	RejectOutOfRange    MoveRejection = "out_of_range"
	RejectOccupiedCell  MoveRejection = "occupied_cell"
)

// IllegalMoveError is returned for rejected moves. It matches ErrIllegalMove.
type IllegalMoveError struct {
	Reason MoveRejection
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move: %s", e.Reason)
}

func (e *IllegalMoveError) Is(target error) bool {
	return target == ErrIllegalMove
}

// NewIllegalMove creates an IllegalMoveError with the given reason
func NewIllegalMove(reason MoveRejection) error {
	return &IllegalMoveError{Reason: reason}
}
