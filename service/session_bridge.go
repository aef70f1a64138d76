package service

import (
	"context"
	"fmt"

	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
)

// SessionBridge turns a resolved account into a login artifact from the
// identity provider. Nothing is rolled back on failure; calling it again is safe.
type SessionBridge struct {
	accounts ports.AccountStore
	provider ports.IdentityProvider
}

// NewSessionBridge creates a session bridge
func NewSessionBridge(accounts ports.AccountStore, provider ports.IdentityProvider) *SessionBridge {
	return &SessionBridge{accounts: accounts, provider: provider}
}

// IssueSession returns a one-time login artifact for accountID.
// Every failure is reported as core.ErrSessionIssuanceFailed.
func (b *SessionBridge) IssueSession(ctx context.Context, accountID string, wallet core.Wallet) (*core.SessionArtifact, error) {
	identity, err := b.resolveIdentity(ctx, accountID, wallet)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSessionIssuanceFailed, err)
	}

	if err := b.provider.EnsureIdentity(ctx, identity, accountID); err != nil {
		return nil, fmt.Errorf("%w: ensure identity: %w", core.ErrSessionIssuanceFailed, err)
	}

	artifact, expiresAt, err := b.provider.GenerateLoginArtifact(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("%w: generate login artifact: %w", core.ErrSessionIssuanceFailed, err)
	}

	return &core.SessionArtifact{
		LoginArtifact: artifact,
		ExpiresAt:     expiresAt,
		AccountID:     accountID,
		Wallet:        wallet,
	}, nil
}

// resolveIdentity prefers the account's email, then its stored login
// identity, and otherwise persists the wallet's pseudo-identity.
func (b *SessionBridge) resolveIdentity(ctx context.Context, accountID string, wallet core.Wallet) (string, error) {
	account, err := b.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("load account: %w", err)
	}
	if identity := account.Identity(); identity != "" {
		return identity, nil
	}

	identity := wallet.PseudoIdentity()
	if err := b.accounts.SetLoginIdentity(ctx, accountID, identity); err != nil {
		return "", fmt.Errorf("persist login identity: %w", err)
	}
	return identity, nil
}
