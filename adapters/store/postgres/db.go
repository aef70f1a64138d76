// Package postgres persists wallet challenges, accounts and bindings in
// PostgreSQL through bun over the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// Open connects to dsn and returns a bun handle
func Open(ctx context.Context, dsn string) (*bun.DB, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "postgres.Open: ")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "postgres.Open.Ping: ")
	}
	return bun.NewDB(sqlDB, pgdialect.New()), nil
}

// CreateSchema creates the tables and indexes used by the repositories
func CreateSchema(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().Model((*accountModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return errors.Wrap(err, "postgres.CreateSchema.Accounts: ")
	}
	if _, err := db.NewCreateTable().
		Model((*bindingModel)(nil)).
		IfNotExists().
		ForeignKey(`("account_id") REFERENCES "accounts" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return errors.Wrap(err, "postgres.CreateSchema.Bindings: ")
	}
	if _, err := db.NewCreateTable().Model((*challengeModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return errors.Wrap(err, "postgres.CreateSchema.Challenges: ")
	}

	if _, err := db.NewCreateIndex().
		Model((*bindingModel)(nil)).
		Index("wallet_bindings_account_id_idx").
		Column("account_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.Wrap(err, "postgres.CreateSchema.Index: ")
	}
	return nil
}
