package storage

import (
	"context"

	"github.com/mcoot/tictactoe-server/internal/model"
)

// Storage defines the interface for credential persistence
type Storage interface {
	// CreateUser stores a new user. It fails with model.ErrUsernameTaken if the
	// username exists; two concurrent creates of one username never both succeed.
	CreateUser(ctx context.Context, user *model.User) error

	// GetUser returns model.ErrUserNotFound for unknown usernames
	GetUser(ctx context.Context, username string) (*model.User, error)

	// CountUsers returns the number of registered users
	CountUsers(ctx context.Context) (int, error)

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error

	Close() error
}
