package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// IdentityRepository stores accounts and wallet bindings. The primary key on
// wallet_bindings is the uniqueness constraint for (chain, address).
type IdentityRepository struct {
	db *bun.DB
}

// NewIdentityRepository creates a Postgres-backed identity store
func NewIdentityRepository(db *bun.DB) ports.IdentityStore {
	return &IdentityRepository{db: db}
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func (r *IdentityRepository) FindBinding(ctx context.Context, wallet core.Wallet) (*core.WalletBinding, error) {
	m := new(bindingModel)
	err := r.db.NewSelect().
		Model(m).
		Where("chain_family = ?", wallet.Chain.String()).
		Where("wallet_address = ?", wallet.Address).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "identityRepo.FindBinding.Scan: ")
	}
	b, err := m.toCore()
	if err != nil {
		return nil, errors.Wrap(err, "identityRepo.FindBinding.Decode: ")
	}
	return &b, nil
}

func (r *IdentityRepository) CreateBinding(ctx context.Context, binding *core.WalletBinding) error {
	_, err := r.db.NewInsert().Model(bindingFromCore(binding)).Exec(ctx)
	return mapInsertErr(err, "identityRepo.CreateBinding.Insert: ")
}

// CreateAccountWithBinding inserts the account and its first binding in one transaction
func (r *IdentityRepository) CreateAccountWithBinding(ctx context.Context, account *core.Account, binding *core.WalletBinding) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(accountFromCore(account)).Exec(ctx); err != nil {
			return mapInsertErr(err, "identityRepo.CreateAccountWithBinding.InsertAccount: ")
		}
		if _, err := tx.NewInsert().Model(bindingFromCore(binding)).Exec(ctx); err != nil {
			return mapInsertErr(err, "identityRepo.CreateAccountWithBinding.InsertBinding: ")
		}
		return nil
	})
}

func (r *IdentityRepository) TouchBinding(ctx context.Context, wallet core.Wallet, verifiedAt time.Time) error {
	res, err := r.db.NewUpdate().
		Model((*bindingModel)(nil)).
		Set("verified_at = ?", verifiedAt).
		Where("chain_family = ?", wallet.Chain.String()).
		Where("wallet_address = ?", wallet.Address).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "identityRepo.TouchBinding.Update: ")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrAccountNotFound
	}
	return nil
}

func (r *IdentityRepository) ListBindings(ctx context.Context, accountID string) ([]core.WalletBinding, error) {
	var rows []bindingModel
	err := r.db.NewSelect().
		Model(&rows).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "identityRepo.ListBindings.Scan: ")
	}

	out := make([]core.WalletBinding, 0, len(rows))
	for i := range rows {
		b, err := rows[i].toCore()
		if err != nil {
			return nil, errors.Wrap(err, "identityRepo.ListBindings.Decode: ")
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *IdentityRepository) GetAccount(ctx context.Context, accountID string) (*core.Account, error) {
	m := new(accountModel)
	err := r.db.NewSelect().Model(m).Where("id = ?", accountID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrAccountNotFound
		}
		return nil, errors.Wrap(err, "identityRepo.GetAccount.Scan: ")
	}
	return m.toCore(), nil
}

func (r *IdentityRepository) FindAccountByIdentity(ctx context.Context, identity string) (*core.Account, error) {
	m := new(accountModel)
	err := r.db.NewSelect().
		Model(m).
		WhereOr("email = ?", identity).
		WhereOr("login_identity = ?", identity).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrAccountNotFound
		}
		return nil, errors.Wrap(err, "identityRepo.FindAccountByIdentity.Scan: ")
	}
	return m.toCore(), nil
}

// SetLoginIdentity writes the identity only while the column is still empty
func (r *IdentityRepository) SetLoginIdentity(ctx context.Context, accountID, identity string) error {
	res, err := r.db.NewUpdate().
		Model((*accountModel)(nil)).
		Set("login_identity = ?", identity).
		Where("id = ?", accountID).
		Where("login_identity IS NULL OR login_identity = ?", identity).
		Exec(ctx)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return core.ErrIdentityConflict
		}
		return errors.Wrap(err, "identityRepo.SetLoginIdentity.Update: ")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	if _, err := r.GetAccount(ctx, accountID); err != nil {
		return err
	}
	return core.ErrIdentityConflict
}

func mapInsertErr(err error, op string) error {
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case pgUniqueViolation:
		return core.ErrWalletAlreadyLinked
	case pgForeignKeyViolation:
		return core.ErrAccountNotFound
	}
	return errors.Wrap(err, op)
}
