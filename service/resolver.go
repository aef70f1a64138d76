package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
)

// Resolver maps a proven wallet onto an account.
// It takes no locks; binding uniqueness is enforced by the store.
type Resolver struct {
	bindings ports.BindingStore
	now      func() time.Time
}

// NewResolver creates an identity resolver over the binding store
func NewResolver(bindings ports.BindingStore) *Resolver {
	return &Resolver{bindings: bindings, now: time.Now}
}

// Authenticate signs in the wallet's account, creating a wallet-native
// account and binding together when the wallet is unknown.
func (r *Resolver) Authenticate(ctx context.Context, wallet core.Wallet) (*core.Resolution, error) {
	existing, err := r.bindings.FindBinding(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to find binding: %w", err)
	}
	now := r.now()

	if existing != nil {
		if err := r.bindings.TouchBinding(ctx, wallet, now); err != nil {
			return nil, fmt.Errorf("failed to update binding: %w", err)
		}
		return &core.Resolution{AccountID: existing.AccountID, Wallet: wallet}, nil
	}

	account := &core.Account{
		ID:            uuid.New().String(),
		LoginIdentity: wallet.PseudoIdentity(),
		CreatedAt:     now,
	}
	binding := &core.WalletBinding{
		Chain:      wallet.Chain,
		Address:    wallet.Address,
		AccountID:  account.ID,
		CreatedAt:  now,
		VerifiedAt: now,
	}
	if err := r.bindings.CreateAccountWithBinding(ctx, account, binding); err != nil {
		if errors.Is(err, core.ErrWalletAlreadyLinked) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return &core.Resolution{
		AccountID:      account.ID,
		Wallet:         wallet,
		AccountCreated: true,
		BindingCreated: true,
	}, nil
}

// Link attaches the wallet to currentAccountID. Linking a wallet that is
// already bound to the same account is a successful no-op.
func (r *Resolver) Link(ctx context.Context, wallet core.Wallet, currentAccountID string) (*core.Resolution, error) {
	if currentAccountID == "" {
		return nil, core.ErrUnauthenticated
	}

	existing, err := r.bindings.FindBinding(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to find binding: %w", err)
	}
	now := r.now()

	if existing != nil {
		return r.relink(ctx, existing, wallet, currentAccountID, now)
	}

	err = r.bindings.CreateBinding(ctx, &core.WalletBinding{
		Chain:      wallet.Chain,
		Address:    wallet.Address,
		AccountID:  currentAccountID,
		CreatedAt:  now,
		VerifiedAt: now,
	})
	switch {
	case err == nil:
		return &core.Resolution{AccountID: currentAccountID, Wallet: wallet, BindingCreated: true}, nil
	case errors.Is(err, core.ErrWalletAlreadyLinked):
		// Lost a race; the winner may have been this same account.
		winner, findErr := r.bindings.FindBinding(ctx, wallet)
		if findErr != nil || winner == nil {
			return nil, err
		}
		return r.relink(ctx, winner, wallet, currentAccountID, now)
	default:
		return nil, fmt.Errorf("failed to create binding: %w", err)
	}
}

func (r *Resolver) relink(ctx context.Context, existing *core.WalletBinding, wallet core.Wallet, accountID string, now time.Time) (*core.Resolution, error) {
	if existing.AccountID != accountID {
		return nil, core.ErrWalletAlreadyLinked
	}
	if err := r.bindings.TouchBinding(ctx, wallet, now); err != nil {
		return nil, fmt.Errorf("failed to update binding: %w", err)
	}
	return &core.Resolution{AccountID: accountID, Wallet: wallet}, nil
}
