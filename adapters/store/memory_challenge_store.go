package store

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
)

// MemoryChallengeStore keeps one challenge per wallet in a map.
// Suitable for single-node deployments and tests.
type MemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]core.WalletChallenge
}

// NewMemoryChallengeStore creates an empty in-memory challenge store
func NewMemoryChallengeStore() ports.ChallengeStore {
	return &MemoryChallengeStore{
		challenges: make(map[string]core.WalletChallenge),
	}
}

// Save stores the challenge, replacing whatever was issued before for the wallet
func (s *MemoryChallengeStore) Save(ctx context.Context, challenge *core.WalletChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[challenge.Wallet().Key()] = *challenge
	return nil
}

// Lookup returns a copy of the live challenge matching wallet and nonce
func (s *MemoryChallengeStore) Lookup(ctx context.Context, wallet core.Wallet, nonce string, now time.Time) (*core.WalletChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, err := s.matchLocked(wallet, nonce, now)
	if err != nil {
		return nil, err
	}
	out := *ch
	return &out, nil
}

// Consume checks and marks the challenge under a single lock acquisition
func (s *MemoryChallengeStore) Consume(ctx context.Context, wallet core.Wallet, nonce string, now time.Time) (*core.WalletChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, err := s.matchLocked(wallet, nonce, now)
	if err != nil {
		return nil, err
	}

	consumedAt := now
	ch.ConsumedAt = &consumedAt
	ch.Nonce = ""
	s.challenges[wallet.Key()] = *ch

	out := *ch
	return &out, nil
}

// PurgeExpired removes challenges that expired or were consumed before the cutoff
func (s *MemoryChallengeStore) PurgeExpired(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for key, ch := range s.challenges {
		if ch.ExpiresAt.Before(before) || (ch.ConsumedAt != nil && ch.ConsumedAt.Before(before)) {
			delete(s.challenges, key)
			purged++
		}
	}
	return purged, nil
}

func (s *MemoryChallengeStore) matchLocked(wallet core.Wallet, nonce string, now time.Time) (*core.WalletChallenge, error) {
	ch, ok := s.challenges[wallet.Key()]
	if !ok || ch.Consumed() || nonce == "" {
		return nil, core.ErrChallengeNotFound
	}
	if subtle.ConstantTimeCompare([]byte(ch.Nonce), []byte(nonce)) != 1 {
		return nil, core.ErrChallengeNotFound
	}
	if ch.Expired(now) {
		return nil, core.ErrChallengeExpired
	}
	return &ch, nil
}
