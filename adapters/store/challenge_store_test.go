package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testWallet = core.Wallet{Chain: core.ChainEVM, Address: "0xabc0000000000000000000000000000000000123"}

func newTestChallenge(nonce string, issuedAt time.Time) *core.WalletChallenge {
	ch := &core.WalletChallenge{
		Chain:     testWallet.Chain,
		Address:   testWallet.Address,
		Nonce:     nonce,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(5 * time.Minute),
	}
	ch.Message = core.BuildChallengeMessage(core.MessageParams{Domain: "example.com"}, ch)
	return ch
}

func challengeStores(t *testing.T) map[string]func(t *testing.T) ports.ChallengeStore {
	return map[string]func(t *testing.T) ports.ChallengeStore{
		"memory": func(t *testing.T) ports.ChallengeStore {
			return NewMemoryChallengeStore()
		},
		"redis": func(t *testing.T) ports.ChallengeStore {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return NewRedisChallengeStore(client)
		},
	}
}

func TestChallengeStores(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	for name, newStore := range challengeStores(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("consume_is_single_use", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Save(ctx, newTestChallenge("nonce-1", now)))

				got, err := s.Consume(ctx, testWallet, "nonce-1", now.Add(time.Second))
				require.NoError(t, err)
				require.NotNil(t, got.ConsumedAt)
				assert.Empty(t, got.Nonce)
				assert.Equal(t, testWallet.Address, got.Address)
				assert.Contains(t, got.Message, "Nonce: nonce-1")

				_, err = s.Consume(ctx, testWallet, "nonce-1", now.Add(2*time.Second))
				assert.ErrorIs(t, err, core.ErrChallengeNotFound)
			})

			t.Run("expired_is_never_consumable", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Save(ctx, newTestChallenge("nonce-2", now)))

				_, err := s.Consume(ctx, testWallet, "nonce-2", now.Add(5*time.Minute))
				assert.ErrorIs(t, err, core.ErrChallengeExpired)

				_, err = s.Lookup(ctx, testWallet, "nonce-2", now.Add(6*time.Minute))
				assert.ErrorIs(t, err, core.ErrChallengeExpired)
			})

			t.Run("wrong_nonce_not_found", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Save(ctx, newTestChallenge("nonce-3", now)))

				_, err := s.Consume(ctx, testWallet, "other", now)
				assert.ErrorIs(t, err, core.ErrChallengeNotFound)
				_, err = s.Consume(ctx, testWallet, "", now)
				assert.ErrorIs(t, err, core.ErrChallengeNotFound)

				other := core.Wallet{Chain: core.ChainEVM, Address: "0xdef0000000000000000000000000000000000456"}
				_, err = s.Consume(ctx, other, "nonce-3", now)
				assert.ErrorIs(t, err, core.ErrChallengeNotFound)
			})

			t.Run("lookup_requires_exact_nonce", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Save(ctx, newTestChallenge("nonce-5", now)))

				for _, nonce := range []string{"nonce-6", "nonce-", "nonce-55", "NONCE-5", ""} {
					_, err := s.Lookup(ctx, testWallet, nonce, now)
					assert.ErrorIs(t, err, core.ErrChallengeNotFound, "nonce %q", nonce)
				}
				got, err := s.Lookup(ctx, testWallet, "nonce-5", now)
				require.NoError(t, err)
				assert.Equal(t, "nonce-5", got.Nonce)
			})

			t.Run("new_issue_supersedes_previous", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Save(ctx, newTestChallenge("old", now)))
				require.NoError(t, s.Save(ctx, newTestChallenge("new", now.Add(time.Second))))

				_, err := s.Lookup(ctx, testWallet, "old", now.Add(2*time.Second))
				assert.ErrorIs(t, err, core.ErrChallengeNotFound)

				got, err := s.Lookup(ctx, testWallet, "new", now.Add(2*time.Second))
				require.NoError(t, err)
				assert.Nil(t, got.ConsumedAt)
			})

			t.Run("lookup_does_not_consume", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Save(ctx, newTestChallenge("nonce-4", now)))

				_, err := s.Lookup(ctx, testWallet, "nonce-4", now)
				require.NoError(t, err)
				_, err = s.Consume(ctx, testWallet, "nonce-4", now)
				require.NoError(t, err)
			})

			t.Run("concurrent_consume_has_one_winner", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Save(ctx, newTestChallenge("race", now)))

				var wins, losses int32
				var wg sync.WaitGroup
				for i := 0; i < 16; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						if _, err := s.Consume(ctx, testWallet, "race", now); err == nil {
							atomic.AddInt32(&wins, 1)
						} else if assert.ErrorIs(t, err, core.ErrChallengeNotFound) {
							atomic.AddInt32(&losses, 1)
						}
					}()
				}
				wg.Wait()
				assert.EqualValues(t, 1, wins)
				assert.EqualValues(t, 15, losses)
			})

			t.Run("purge_removes_inert_records", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Save(ctx, newTestChallenge("stale", now.Add(-time.Hour))))

				purged, err := s.PurgeExpired(ctx, now)
				require.NoError(t, err)
				assert.Equal(t, 1, purged)

				_, err = s.Lookup(ctx, testWallet, "stale", now)
				assert.ErrorIs(t, err, core.ErrChallengeNotFound)
			})
		})
	}
}
