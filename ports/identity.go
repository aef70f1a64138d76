package ports

import (
	"context"
	"time"
)

// IdentityProvider is the platform's credential-based identity system.
// Wallet auth can only ask it to keep an identity record for an account and
// to mint a one-time login artifact for that identity.
type IdentityProvider interface {
	EnsureIdentity(ctx context.Context, identity, accountID string) error
	GenerateLoginArtifact(ctx context.Context, identity string) (artifact string, expiresAt time.Time, err error)
}
