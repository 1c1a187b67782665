package store

import (
	"context"
	"sync"
)

// MemoryTokenStore keeps the credential in process memory only
type MemoryTokenStore struct {
	mu      sync.Mutex
	cred    Credential
	present bool
}

// NewMemoryTokenStore returns an empty in-memory store
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Save(_ context.Context, cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = cred
	s.present = true
	return nil
}

func (s *MemoryTokenStore) Load(_ context.Context) (Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred, s.present
}

func (s *MemoryTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = Credential{}
	s.present = false
	return nil
}
