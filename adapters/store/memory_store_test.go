package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStores(t *testing.T) {
	ctx := context.Background()

	stores := map[string]func(t *testing.T) ports.TokenStore{
		"memory": func(t *testing.T) ports.TokenStore { return NewMemoryStore() },
		"redis": func(t *testing.T) ports.TokenStore {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return NewRedisStore(client)
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			invalidated, err := s.IsTokenInvalidated(ctx, "jti-1")
			require.NoError(t, err)
			assert.False(t, invalidated)

			require.NoError(t, s.InvalidateToken(ctx, "jti-1", time.Minute))
			invalidated, err = s.IsTokenInvalidated(ctx, "jti-1")
			require.NoError(t, err)
			assert.True(t, invalidated)

			ok, err := s.ConsumeToken(ctx, "jti-2", time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = s.ConsumeToken(ctx, "jti-2", time.Minute)
			require.NoError(t, err)
			assert.False(t, ok, "single-use token consumed twice")

			ok, err = s.ConsumeToken(ctx, "jti-1", time.Minute)
			require.NoError(t, err)
			assert.False(t, ok, "invalidated token must not be consumable")
		})
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := NewMemoryStore().(*MemoryStore)
	s.now = func() time.Time { return now }

	require.NoError(t, s.InvalidateToken(ctx, "jti", time.Minute))
	now = now.Add(2 * time.Minute)

	invalidated, err := s.IsTokenInvalidated(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, invalidated)
}

func newAccount() *core.Account {
	return &core.Account{ID: uuid.NewString(), CreatedAt: time.Now()}
}

func TestMemoryIdentityStoreBindingUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdentityStore()
	wallet := core.Wallet{Chain: core.ChainSolana, Address: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"}

	accounts := []*core.Account{newAccount(), newAccount()}
	for _, a := range accounts {
		require.NoError(t, s.CreateAccountWithBinding(ctx, a, &core.WalletBinding{
			Chain:     core.ChainEVM,
			Address:   "0x" + a.ID[:8] + "00000000000000000000000000000000",
			AccountID: a.ID,
		}))
	}

	results := make([]error, len(accounts))
	var wg sync.WaitGroup
	for i, a := range accounts {
		wg.Add(1)
		go func(i int, accountID string) {
			defer wg.Done()
			results[i] = s.CreateBinding(ctx, &core.WalletBinding{
				Chain:     wallet.Chain,
				Address:   wallet.Address,
				AccountID: accountID,
			})
		}(i, a.ID)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, core.ErrWalletAlreadyLinked):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	b, err := s.FindBinding(ctx, wallet)
	require.NoError(t, err)
	require.NotNil(t, b)
}

func TestMemoryIdentityStoreAccountWithBindingIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdentityStore()
	wallet := core.Wallet{Chain: core.ChainEVM, Address: "0xabc0000000000000000000000000000000000123"}

	first := newAccount()
	first.LoginIdentity = wallet.PseudoIdentity()
	require.NoError(t, s.CreateAccountWithBinding(ctx, first, &core.WalletBinding{Chain: wallet.Chain, Address: wallet.Address, AccountID: first.ID}))

	loser := newAccount()
	err := s.CreateAccountWithBinding(ctx, loser, &core.WalletBinding{Chain: wallet.Chain, Address: wallet.Address, AccountID: loser.ID})
	assert.ErrorIs(t, err, core.ErrWalletAlreadyLinked)

	_, err = s.GetAccount(ctx, loser.ID)
	assert.ErrorIs(t, err, core.ErrAccountNotFound, "losing account must not be persisted")

	found, err := s.FindAccountByIdentity(ctx, wallet.PseudoIdentity())
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestMemoryIdentityStoreLoginIdentity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdentityStore()
	a := newAccount()
	require.NoError(t, s.CreateAccountWithBinding(ctx, a, &core.WalletBinding{Chain: core.ChainEVM, Address: "0xabc0000000000000000000000000000000000123", AccountID: a.ID}))

	require.NoError(t, s.SetLoginIdentity(ctx, a.ID, "evm.abc@wallet.invalid"))
	require.NoError(t, s.SetLoginIdentity(ctx, a.ID, "evm.abc@wallet.invalid"))
	assert.ErrorIs(t, s.SetLoginIdentity(ctx, a.ID, "evm.def@wallet.invalid"), core.ErrIdentityConflict)

	got, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "evm.abc@wallet.invalid", got.LoginIdentity)
}
