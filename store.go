package session

import (
	"context"
	"sync"
)

// MemoryStore is a TokenStore that lives and dies with the process. Sessions
// backed by it never survive a restart; use store.FileStore for durability.
type MemoryStore struct {
	mu    sync.Mutex
	creds Credentials
	saved bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if creds.User != nil {
		u := *creds.User
		creds.User = &u
	}
	s.creds = creds
	s.saved = true
	return nil
}

func (s *MemoryStore) Read(_ context.Context) (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return Credentials{}, nil
	}
	creds := s.creds
	if creds.User != nil {
		u := *creds.User
		creds.User = &u
	}
	return creds, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	s.saved = false
	return nil
}
