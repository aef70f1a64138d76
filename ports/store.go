package ports

import (
	"context"
	"time"

	"github.com/layer-3/walletgate/core"
)

// TokenStore tracks revoked and single-use token identifiers
type TokenStore interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
	// ConsumeToken atomically marks tokenID as used. It returns false if the
	// token had already been consumed or invalidated.
	ConsumeToken(ctx context.Context, tokenID string, expiry time.Duration) (bool, error)
}

// ChallengeStore persists wallet challenges, one live challenge per wallet
type ChallengeStore interface {
	// Save stores the challenge, superseding any previous one for the same wallet
	Save(ctx context.Context, challenge *core.WalletChallenge) error
	// Lookup returns the challenge matching wallet and nonce without mutating it
	Lookup(ctx context.Context, wallet core.Wallet, nonce string, now time.Time) (*core.WalletChallenge, error)
	// Consume atomically checks the challenge is live and marks it consumed.
	// Returns core.ErrChallengeNotFound or core.ErrChallengeExpired otherwise.
	Consume(ctx context.Context, wallet core.Wallet, nonce string, now time.Time) (*core.WalletChallenge, error)
	// PurgeExpired deletes challenges that expired or were consumed before the cutoff
	PurgeExpired(ctx context.Context, before time.Time) (int, error)
}

// BindingStore persists wallet bindings. Uniqueness of (chain, address) is
// enforced here and surfaces as core.ErrWalletAlreadyLinked.
type BindingStore interface {
	FindBinding(ctx context.Context, wallet core.Wallet) (*core.WalletBinding, error)
	CreateBinding(ctx context.Context, binding *core.WalletBinding) error
	// CreateAccountWithBinding writes a new account and its first binding as one unit
	CreateAccountWithBinding(ctx context.Context, account *core.Account, binding *core.WalletBinding) error
	TouchBinding(ctx context.Context, wallet core.Wallet, verifiedAt time.Time) error
	ListBindings(ctx context.Context, accountID string) ([]core.WalletBinding, error)
}

// AccountStore reads and updates the minimal account record
type AccountStore interface {
	GetAccount(ctx context.Context, accountID string) (*core.Account, error)
	FindAccountByIdentity(ctx context.Context, identity string) (*core.Account, error)
	SetLoginIdentity(ctx context.Context, accountID, identity string) error
}

// IdentityStore is implemented by backends that hold both accounts and bindings
type IdentityStore interface {
	BindingStore
	AccountStore
}
