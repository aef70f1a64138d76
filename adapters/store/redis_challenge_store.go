package store

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
	"github.com/redis/go-redis/v9"
)

const defaultChallengeRetention = 10 * time.Minute

// Result codes returned by consumeScript
const (
	consumeNotFound int64 = 0
	consumeExpired  int64 = 1
	consumeOK       int64 = 2
)

// consumeScript performs the read-check-mark of a challenge in one round trip.
// Redis runs scripts atomically, so two concurrent consumers can never both win.
var consumeScript = redis.NewScript(`
local key = KEYS[1]
if redis.call('EXISTS', key) == 0 then
	return {0}
end
local stored = redis.call('HGET', key, 'nonce')
if (not stored) or stored == '' or stored ~= ARGV[1] then
	return {0}
end
local consumed = redis.call('HGET', key, 'consumed_at')
if consumed and consumed ~= '' then
	return {0}
end
local expires = tonumber(redis.call('HGET', key, 'expires_at'))
if (not expires) or tonumber(ARGV[2]) >= expires then
	return {1}
end
redis.call('HSET', key, 'consumed_at', ARGV[2], 'nonce', '')
return {2, redis.call('HGETALL', key)}
`)

// RedisChallengeStore keeps each wallet's challenge in a Redis hash.
// Keys outlive expires_at by a retention window so an expired challenge is
// reported as expired rather than missing.
type RedisChallengeStore struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewRedisChallengeStore creates a Redis-backed challenge store
func NewRedisChallengeStore(client redis.UniversalClient) ports.ChallengeStore {
	return &RedisChallengeStore{
		client:    client,
		prefix:    "walletgate:challenge:",
		retention: defaultChallengeRetention,
	}
}

func (s *RedisChallengeStore) key(wallet core.Wallet) string {
	return s.prefix + wallet.Key()
}

// Save replaces any previous challenge for the wallet
func (s *RedisChallengeStore) Save(ctx context.Context, challenge *core.WalletChallenge) error {
	key := s.key(challenge.Wallet())
	ttl := time.Until(challenge.ExpiresAt) + s.retention
	if ttl <= 0 {
		ttl = s.retention
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, map[string]any{
			"chain":      challenge.Chain.String(),
			"address":    challenge.Address,
			"nonce":      challenge.Nonce,
			"message":    challenge.Message,
			"issued_at":  strconv.FormatInt(challenge.IssuedAt.UnixMilli(), 10),
			"expires_at": strconv.FormatInt(challenge.ExpiresAt.UnixMilli(), 10),
		})
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save challenge: %w", err)
	}
	return nil
}

// Lookup reads the challenge without mutating it
func (s *RedisChallengeStore) Lookup(ctx context.Context, wallet core.Wallet, nonce string, now time.Time) (*core.WalletChallenge, error) {
	fields, err := s.client.HGetAll(ctx, s.key(wallet)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	if len(fields) == 0 {
		return nil, core.ErrChallengeNotFound
	}

	ch, err := challengeFromHash(fields)
	if err != nil {
		return nil, err
	}
	if ch.Consumed() || nonce == "" || subtle.ConstantTimeCompare([]byte(ch.Nonce), []byte(nonce)) != 1 {
		return nil, core.ErrChallengeNotFound
	}
	if ch.Expired(now) {
		return nil, core.ErrChallengeExpired
	}
	return ch, nil
}

// Consume atomically marks the challenge as consumed
func (s *RedisChallengeStore) Consume(ctx context.Context, wallet core.Wallet, nonce string, now time.Time) (*core.WalletChallenge, error) {
	if nonce == "" {
		return nil, core.ErrChallengeNotFound
	}

	res, err := consumeScript.Run(ctx, s.client, []string{s.key(wallet)}, nonce, now.UnixMilli()).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to consume challenge: %w", err)
	}
	if len(res) == 0 {
		return nil, errors.New("empty consume script reply")
	}

	code, _ := res[0].(int64)
	switch code {
	case consumeNotFound:
		return nil, core.ErrChallengeNotFound
	case consumeExpired:
		return nil, core.ErrChallengeExpired
	case consumeOK:
	default:
		return nil, fmt.Errorf("unexpected consume script reply %v", res[0])
	}

	if len(res) < 2 {
		return nil, errors.New("consume script reply missing challenge")
	}
	flat, ok := res[1].([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected consume script payload %T", res[1])
	}
	fields := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		k, _ := flat[i].(string)
		v, _ := flat[i+1].(string)
		fields[k] = v
	}
	return challengeFromHash(fields)
}

// PurgeExpired scans challenge keys and deletes inert ones. Redis TTLs make
// this a backstop; it exists so every backend honors the same contract.
func (s *RedisChallengeStore) PurgeExpired(ctx context.Context, before time.Time) (int, error) {
	purged := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		fields, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return purged, fmt.Errorf("failed to load challenge %s: %w", key, err)
		}
		if len(fields) == 0 {
			continue
		}
		ch, err := challengeFromHash(fields)
		if err != nil || ch.ExpiresAt.Before(before) || (ch.ConsumedAt != nil && ch.ConsumedAt.Before(before)) {
			if err := s.client.Del(ctx, key).Err(); err != nil {
				return purged, fmt.Errorf("failed to delete challenge %s: %w", key, err)
			}
			purged++
		}
	}
	if err := iter.Err(); err != nil {
		return purged, fmt.Errorf("failed to scan challenges: %w", err)
	}
	return purged, nil
}

func challengeFromHash(fields map[string]string) (*core.WalletChallenge, error) {
	chain, err := core.ParseChainFamily(fields["chain"])
	if err != nil {
		return nil, fmt.Errorf("corrupt challenge record: %w", err)
	}
	issuedAt, err := parseMillis(fields["issued_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt challenge issued_at: %w", err)
	}
	expiresAt, err := parseMillis(fields["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt challenge expires_at: %w", err)
	}

	ch := &core.WalletChallenge{
		Chain:     chain,
		Address:   fields["address"],
		Nonce:     fields["nonce"],
		Message:   fields["message"],
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}
	if raw := fields["consumed_at"]; raw != "" {
		consumedAt, err := parseMillis(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt challenge consumed_at: %w", err)
		}
		ch.ConsumedAt = &consumedAt
	}
	return ch, nil
}

func parseMillis(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
