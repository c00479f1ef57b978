package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/tictactoe-server/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing.
// Queued values are returned first; once exhausted it falls back to
// predictable sequential identifiers so generated ids stay unique.
type MockRandom struct {
	mu sync.Mutex

	stringResults []string
	uuidResults   []string

	stringCount int
	uuidCount   int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// String returns the next queued result, or "id-N" if none remaining
func (r *MockRandom) String(length int, alphabet string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stringCount++
	if len(r.stringResults) > 0 {
		result := r.stringResults[0]
		r.stringResults = r.stringResults[1:]
		return result
	}
	return fmt.Sprintf("id-%d", r.stringCount)
}

// UUID returns the next queued result, or "conn-N" if none remaining
func (r *MockRandom) UUID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uuidCount++
	if len(r.uuidResults) > 0 {
		result := r.uuidResults[0]
		r.uuidResults = r.uuidResults[1:]
		return result
	}
	return fmt.Sprintf("conn-%d", r.uuidCount)
}

// QueueString adds values to the String result queue
func (r *MockRandom) QueueString(values ...string) {
	r.mu.Lock()
	r.stringResults = append(r.stringResults, values...)
	r.mu.Unlock()
}

// QueueUUID adds values to the UUID result queue
func (r *MockRandom) QueueUUID(values ...string) {
	r.mu.Lock()
	r.uuidResults = append(r.uuidResults, values...)
	r.mu.Unlock()
}

// Reset clears all queued results and counters
func (r *MockRandom) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stringResults = nil
	r.uuidResults = nil
	r.stringCount = 0
	r.uuidCount = 0
}
