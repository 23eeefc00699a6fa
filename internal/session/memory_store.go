package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the default session backend when Redis is not configured.
// Tokens die with the process, which is acceptable for a single-editor site.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]TokenData
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]TokenData)}
}

func (s *MemoryStore) Save(ctx context.Context, tokenHash string, data TokenData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = data
	return nil
}

func (s *MemoryStore) Lookup(ctx context.Context, tokenHash string) (TokenData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.tokens[tokenHash]
	if !ok {
		return TokenData{}, ErrNotFound
	}
	if time.Now().After(data.ExpiresAt) {
		delete(s.tokens, tokenHash)
		return TokenData{}, ErrNotFound
	}
	return data, nil
}

func (s *MemoryStore) Revoke(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, tokenHash)
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
