package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/tictactoe-server/internal/dependencies/clock"
	"github.com/mcoot/tictactoe-server/internal/model"
	"github.com/mcoot/tictactoe-server/internal/storage"
)

const (
	MaxUsernameLength = 32
	MaxSecretBytes    = 72 // bcrypt ignores anything longer
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,32}$`)

// Config holds configuration for the credential service
type Config struct {
	BcryptCost int
}

// DefaultConfig returns default credential configuration
func DefaultConfig() Config {
	return Config{
		BcryptCost: bcrypt.DefaultCost,
	}
}

// Service registers users and verifies their secrets
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
	cost    int

	// compared against when the user does not exist so failures cost the same
	dummyHash []byte
}

// New creates a new credential Service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger, cfg Config) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultConfig().BcryptCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-secret"), cfg.BcryptCost)
	if err != nil {
		panic(fmt.Sprintf("credentials: invalid bcrypt cost %d: %v", cfg.BcryptCost, err))
	}
	return &Service{
		storage:   storage,
		clock:     clock,
		logger:    logger.With(slog.String("component", "credentials")),
		cost:      cfg.BcryptCost,
		dummyHash: dummy,
	}
}

// ValidateUsername checks the username format
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username must be 1-%d characters of letters, digits, '_', '.' or '-'",
			model.ErrProtocol, MaxUsernameLength)
	}
	return nil
}

// ValidateSecret checks the secret length
func ValidateSecret(secret string) error {
	if len(secret) == 0 || len(secret) > MaxSecretBytes {
		return fmt.Errorf("%w: secret must be 1-%d bytes", model.ErrProtocol, MaxSecretBytes)
	}
	return nil
}

// Register creates a new user. It fails with model.ErrUsernameTaken if the
// username is already registered.
func (s *Service) Register(ctx context.Context, username, secret string) (*model.User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateSecret(secret); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}

	user := &model.User{
		Username:   username,
		SecretHash: string(hash),
		CreatedAt:  s.clock.Now(),
	}
	if err := s.storage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, model.ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", slog.String("username", username))
	return user, nil
}

// Verify checks a username/secret pair. Unknown users and wrong secrets both
// return model.ErrInvalidCredentials.
func (s *Service) Verify(ctx context.Context, username, secret string) (*model.User, error) {
	if ValidateUsername(username) != nil || ValidateSecret(secret) != nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(secret))
		return nil, model.ErrInvalidCredentials
	}

	user, err := s.storage.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(secret))
			return nil, model.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.SecretHash), []byte(secret)); err != nil {
		return nil, model.ErrInvalidCredentials
	}
	return user, nil
}

// CountUsers returns the number of registered users
func (s *Service) CountUsers(ctx context.Context) (int, error) {
	return s.storage.CountUsers(ctx)
}
