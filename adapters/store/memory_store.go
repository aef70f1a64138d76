package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/walletgate/ports"
)

// MemoryStore is an in-memory implementation of the TokenStore interface
type MemoryStore struct {
	invalidatedTokens map[string]time.Time
	mu                sync.Mutex
	now               func() time.Time
}

// NewMemoryStore creates a new in-memory token store
func NewMemoryStore() ports.TokenStore {
	return &MemoryStore{
		invalidatedTokens: make(map[string]time.Time),
		now:               time.Now,
	}
}

// InvalidateToken marks a token as invalidated
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidatedTokens[tokenID] = s.now().Add(expiry)
	s.sweepLocked()
	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.liveLocked(tokenID), nil
}

// ConsumeToken marks a single-use token as spent; false means it was spent already
func (s *MemoryStore) ConsumeToken(ctx context.Context, tokenID string, expiry time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.liveLocked(tokenID) {
		return false, nil
	}
	s.invalidatedTokens[tokenID] = s.now().Add(expiry)
	return true, nil
}

func (s *MemoryStore) liveLocked(tokenID string) bool {
	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false
	}
	if s.now().After(expiryTime) {
		delete(s.invalidatedTokens, tokenID)
		return false
	}
	return true
}

// sweepLocked drops entries whose invalidation window has passed
func (s *MemoryStore) sweepLocked() {
	now := s.now()
	for id, expiryTime := range s.invalidatedTokens {
		if now.After(expiryTime) {
			delete(s.invalidatedTokens, id)
		}
	}
}
