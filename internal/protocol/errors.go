package protocol

import (
	"errors"

	"github.com/mcoot/tictactoe-server/internal/model"
)

// Error codes sent in error replies
const (
	CodeUsernameTaken         = "username_taken"
	CodeInvalidCredentials    = "invalid_credentials"
	CodeNotAuthenticated      = "not_authenticated"
	CodeAlreadyAuthenticated  = "already_authenticated"
	CodeAlreadyLoggedIn       = "already_logged_in"
	CodeAlreadyQueuedOrInGame = "already_queued_or_in_game"
	CodeIllegalMove           = "illegal_move"
	CodeNotInGame             = "not_in_game"
	CodeProtocolError         = "protocol_error"
	CodeRateLimited           = "rate_limited"
	CodeInternalError         = "internal_error"
)

// ErrorFor converts an error into the reply sent to the client.
// Errors not known to the protocol become internal_error without detail.
func ErrorFor(err error) Error {
	var illegal *model.IllegalMoveError
	if errors.As(err, &illegal) {
		return Error{Code: CodeIllegalMove, Message: "Illegal move", Reason: string(illegal.Reason)}
	}

	switch {
	case errors.Is(err, model.ErrUsernameTaken):
		return Error{Code: CodeUsernameTaken, Message: "Username already taken"}
	case errors.Is(err, model.ErrInvalidCredentials):
		return Error{Code: CodeInvalidCredentials, Message: "Invalid username or secret"}
	case errors.Is(err, model.ErrNotAuthenticated):
		return Error{Code: CodeNotAuthenticated, Message: "Log in first"}
	case errors.Is(err, model.ErrAlreadyAuthenticated):
		return Error{Code: CodeAlreadyAuthenticated, Message: "Already logged in on this connection"}
	case errors.Is(err, model.ErrAlreadyLoggedIn):
		return Error{Code: CodeAlreadyLoggedIn, Message: "User is already logged in elsewhere"}
	case errors.Is(err, model.ErrAlreadyQueuedOrInGame):
		return Error{Code: CodeAlreadyQueuedOrInGame, Message: "Already waiting for or playing a game"}
	case errors.Is(err, model.ErrIllegalMove):
		return Error{Code: CodeIllegalMove, Message: "Illegal move"}
	case errors.Is(err, model.ErrNotInGame):
		return Error{Code: CodeNotInGame, Message: "Not in a game"}
	case errors.Is(err, model.ErrProtocol):
		// protocol errors carry a client-facing detail
		return Error{Code: CodeProtocolError, Message: err.Error()}
	case errors.Is(err, model.ErrRateLimited):
		return Error{Code: CodeRateLimited, Message: "Too many messages, slow down"}
	default:
		return Error{Code: CodeInternalError, Message: "Internal server error"}
	}
}
