// Package identity provides the built-in identity provider: identity records
// live on the account row and login artifacts are one-time signed grants
// redeemed through the session endpoint.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
)

const defaultGrantTTL = 2 * time.Minute

// LocalProvider implements ports.IdentityProvider on top of the account store
type LocalProvider struct {
	accounts  ports.AccountStore
	tokenizer ports.Tokenizer
	grantTTL  time.Duration
	now       func() time.Time
}

// Option customizes a LocalProvider
type Option func(*LocalProvider)

// WithGrantTTL sets how long a login artifact stays redeemable
func WithGrantTTL(ttl time.Duration) Option {
	return func(p *LocalProvider) {
		if ttl > 0 {
			p.grantTTL = ttl
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(p *LocalProvider) { p.now = now }
}

// NewLocalProvider creates the built-in identity provider
func NewLocalProvider(accounts ports.AccountStore, tokenizer ports.Tokenizer, opts ...Option) *LocalProvider {
	p := &LocalProvider{
		accounts:  accounts,
		tokenizer: tokenizer,
		grantTTL:  defaultGrantTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EnsureIdentity makes sure identity resolves to accountID. It is idempotent.
func (p *LocalProvider) EnsureIdentity(ctx context.Context, identity, accountID string) error {
	existing, err := p.accounts.FindAccountByIdentity(ctx, identity)
	switch {
	case err == nil:
		if existing.ID != accountID {
			return fmt.Errorf("%w: %s", core.ErrIdentityConflict, identity)
		}
		return nil
	case errors.Is(err, core.ErrAccountNotFound):
		return p.accounts.SetLoginIdentity(ctx, accountID, identity)
	default:
		return fmt.Errorf("failed to look up identity: %w", err)
	}
}

// GenerateLoginArtifact mints a single-use login grant for identity
func (p *LocalProvider) GenerateLoginArtifact(ctx context.Context, identity string) (string, time.Time, error) {
	account, err := p.accounts.FindAccountByIdentity(ctx, identity)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to resolve identity: %w", err)
	}

	now := p.now()
	grant := &core.LoginGrant{
		ID:        uuid.New().String(),
		AccountID: account.ID,
		Identity:  identity,
		IssuedAt:  now,
		ExpiresAt: now.Add(p.grantTTL),
	}

	token, err := p.tokenizer.LoginGrantToToken(grant)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create login artifact: %w", err)
	}
	return token, grant.ExpiresAt, nil
}
