package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"
)

// DefaultStateExpiry is how long an authorize redirect stays redeemable
const DefaultStateExpiry = 10 * time.Minute

// stateBytes of randomness encode to 43 base64url characters
const stateBytes = 32

// StateStore remembers issued anti-CSRF state values until they are
// redeemed once or expire.
type StateStore struct {
	mu     sync.Mutex
	states map[string]time.Time // state -> issued at
	expiry time.Duration
	now    func() time.Time
}

// NewStateStore creates a state store with the default expiry
func NewStateStore() *StateStore {
	return &StateStore{
		states: make(map[string]time.Time),
		expiry: DefaultStateExpiry,
		now:    time.Now,
	}
}

// Generate creates and records a new random state value.
func (s *StateStore) Generate() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	s.states[state] = s.now()
	return state, nil
}

// Consume reports whether state was issued and is still fresh. A state can
// only be consumed once.
func (s *StateStore) Consume(state string) bool {
	if state == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	issued, ok := s.states[state]
	if !ok {
		return false
	}
	delete(s.states, state)
	return s.now().Sub(issued) <= s.expiry
}

func (s *StateStore) purgeLocked() {
	now := s.now()
	for state, issued := range s.states {
		if now.Sub(issued) > s.expiry {
			delete(s.states, state)
		}
	}
}
