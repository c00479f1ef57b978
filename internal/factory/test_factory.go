package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/tictactoe-server/internal/dependencies/mocks"
	"github.com/mcoot/tictactoe-server/internal/services/credentials"
	"github.com/mcoot/tictactoe-server/internal/services/session"
	"github.com/mcoot/tictactoe-server/internal/storage/memory"
	"github.com/mcoot/tictactoe-server/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Rate limiting is off and bcrypt runs at its minimum cost.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(
		store,
		mockClock,
		mockRandom,
		credentials.Config{BcryptCost: bcrypt.MinCost},
		session.Config{},
		testutil.NopLogger(),
	)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
