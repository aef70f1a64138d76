package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// ChallengeRepository stores one challenge row per (chain_family, wallet_address)
type ChallengeRepository struct {
	db *bun.DB
}

// NewChallengeRepository creates a Postgres-backed challenge store
func NewChallengeRepository(db *bun.DB) ports.ChallengeStore {
	return &ChallengeRepository{db: db}
}

// Save upserts the challenge, superseding the previous nonce for the wallet
func (r *ChallengeRepository) Save(ctx context.Context, challenge *core.WalletChallenge) error {
	_, err := r.db.NewInsert().
		Model(challengeFromCore(challenge)).
		On("CONFLICT (chain_family, wallet_address) DO UPDATE").
		Set("nonce = EXCLUDED.nonce").
		Set("message = EXCLUDED.message").
		Set("issued_at = EXCLUDED.issued_at").
		Set("expires_at = EXCLUDED.expires_at").
		Set("consumed_at = NULL").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "challengeRepo.Save.Upsert: ")
	}
	return nil
}

// Lookup reads the live challenge without mutating it
func (r *ChallengeRepository) Lookup(ctx context.Context, wallet core.Wallet, nonce string, now time.Time) (*core.WalletChallenge, error) {
	if nonce == "" {
		return nil, core.ErrChallengeNotFound
	}

	m := new(challengeModel)
	err := r.db.NewSelect().
		Model(m).
		Where("chain_family = ?", wallet.Chain.String()).
		Where("wallet_address = ?", wallet.Address).
		Where("nonce = ?", nonce).
		Where("consumed_at IS NULL").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrChallengeNotFound
		}
		return nil, errors.Wrap(err, "challengeRepo.Lookup.Scan: ")
	}

	ch, err := m.toCore()
	if err != nil {
		return nil, errors.Wrap(err, "challengeRepo.Lookup.Decode: ")
	}
	if ch.Expired(now) {
		return nil, core.ErrChallengeExpired
	}
	return ch, nil
}

// Consume marks the challenge consumed with a single conditional UPDATE.
// Postgres row locking guarantees only one concurrent caller gets a row back.
func (r *ChallengeRepository) Consume(ctx context.Context, wallet core.Wallet, nonce string, now time.Time) (*core.WalletChallenge, error) {
	if nonce == "" {
		return nil, core.ErrChallengeNotFound
	}

	m := new(challengeModel)
	err := r.db.NewUpdate().
		Model(m).
		Set("consumed_at = ?", now).
		Set("nonce = ''").
		Where("chain_family = ?", wallet.Chain.String()).
		Where("wallet_address = ?", wallet.Address).
		Where("nonce = ?", nonce).
		Where("consumed_at IS NULL").
		Where("expires_at > ?", now).
		Returning("*").
		Scan(ctx)
	if err == nil {
		ch, err := m.toCore()
		if err != nil {
			return nil, errors.Wrap(err, "challengeRepo.Consume.Decode: ")
		}
		return ch, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, "challengeRepo.Consume.Update: ")
	}

	// Nothing matched; tell an expired challenge apart from a missing one.
	exists, err := r.db.NewSelect().
		Model((*challengeModel)(nil)).
		Where("chain_family = ?", wallet.Chain.String()).
		Where("wallet_address = ?", wallet.Address).
		Where("nonce = ?", nonce).
		Where("consumed_at IS NULL").
		Exists(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "challengeRepo.Consume.Exists: ")
	}
	if exists {
		return nil, core.ErrChallengeExpired
	}
	return nil, core.ErrChallengeNotFound
}

// PurgeExpired deletes challenges that expired or were consumed before the cutoff
func (r *ChallengeRepository) PurgeExpired(ctx context.Context, before time.Time) (int, error) {
	res, err := r.db.NewDelete().
		Model((*challengeModel)(nil)).
		WhereOr("expires_at < ?", before).
		WhereOr("consumed_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "challengeRepo.PurgeExpired.Delete: ")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "challengeRepo.PurgeExpired.RowsAffected: ")
	}
	return int(n), nil
}
