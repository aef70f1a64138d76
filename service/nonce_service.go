package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
)

const (
	nonceBytes          = 32
	defaultChallengeTTL = 5 * time.Minute
)

// NonceService issues and consumes wallet challenges
type NonceService struct {
	store  ports.ChallengeStore
	params core.MessageParams
	ttl    time.Duration
	now    func() time.Time
}

// NewNonceService creates a nonce service that renders messages for params
func NewNonceService(store ports.ChallengeStore, params core.MessageParams, ttl time.Duration) *NonceService {
	if ttl <= 0 {
		ttl = defaultChallengeTTL
	}
	return &NonceService{
		store:  store,
		params: params,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a fresh challenge for the address, superseding any previous one
func (s *NonceService) Issue(ctx context.Context, chain core.ChainFamily, address string) (*core.WalletChallenge, error) {
	wallet, err := core.NewWallet(chain, address)
	if err != nil {
		return nil, err
	}

	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	challenge := &core.WalletChallenge{
		Chain:     wallet.Chain,
		Address:   wallet.Address,
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	challenge.Message = core.BuildChallengeMessage(s.params, challenge)

	if err := s.store.Save(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}
	return challenge, nil
}

// Lookup returns the live challenge without consuming it
func (s *NonceService) Lookup(ctx context.Context, wallet core.Wallet, nonce string) (*core.WalletChallenge, error) {
	return s.store.Lookup(ctx, wallet, nonce, s.now())
}

// Consume marks the challenge used. Exactly one caller wins per nonce.
func (s *NonceService) Consume(ctx context.Context, wallet core.Wallet, nonce string) (*core.WalletChallenge, error) {
	return s.store.Consume(ctx, wallet, nonce, s.now())
}

// PurgeExpired deletes inert challenges older than before
func (s *NonceService) PurgeExpired(ctx context.Context, before time.Time) (int, error) {
	return s.store.PurgeExpired(ctx, before)
}

func newNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}
