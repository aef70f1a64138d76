package postgres

import (
	"time"

	"github.com/layer-3/walletgate/core"
	"github.com/uptrace/bun"
)

type accountModel struct {
	bun.BaseModel `bun:"table:accounts"`

	ID            string    `bun:"id,pk,type:uuid"`
	Email         *string   `bun:"email,unique"`
	LoginIdentity *string   `bun:"login_identity,unique"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type bindingModel struct {
	bun.BaseModel `bun:"table:wallet_bindings"`

	ChainFamily string    `bun:"chain_family,pk,type:varchar(16)"`
	Address     string    `bun:"wallet_address,pk,type:varchar(64)"`
	AccountID   string    `bun:"account_id,notnull,type:uuid"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	VerifiedAt  time.Time `bun:"verified_at,notnull,default:current_timestamp"`
}

type challengeModel struct {
	bun.BaseModel `bun:"table:wallet_challenges"`

	ChainFamily string     `bun:"chain_family,pk,type:varchar(16)"`
	Address     string     `bun:"wallet_address,pk,type:varchar(64)"`
	Nonce       string     `bun:"nonce,notnull"`
	Message     string     `bun:"message,notnull"`
	IssuedAt    time.Time  `bun:"issued_at,notnull"`
	ExpiresAt   time.Time  `bun:"expires_at,notnull"`
	ConsumedAt  *time.Time `bun:"consumed_at,nullzero"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func accountFromCore(a *core.Account) *accountModel {
	return &accountModel{
		ID:            a.ID,
		Email:         nullable(a.Email),
		LoginIdentity: nullable(a.LoginIdentity),
		CreatedAt:     a.CreatedAt,
	}
}

func (m *accountModel) toCore() *core.Account {
	return &core.Account{
		ID:            m.ID,
		Email:         deref(m.Email),
		LoginIdentity: deref(m.LoginIdentity),
		CreatedAt:     m.CreatedAt,
	}
}

func bindingFromCore(b *core.WalletBinding) *bindingModel {
	return &bindingModel{
		ChainFamily: b.Chain.String(),
		Address:     b.Address,
		AccountID:   b.AccountID,
		CreatedAt:   b.CreatedAt,
		VerifiedAt:  b.VerifiedAt,
	}
}

func (m *bindingModel) toCore() (core.WalletBinding, error) {
	chain, err := core.ParseChainFamily(m.ChainFamily)
	if err != nil {
		return core.WalletBinding{}, err
	}
	return core.WalletBinding{
		Chain:      chain,
		Address:    m.Address,
		AccountID:  m.AccountID,
		CreatedAt:  m.CreatedAt,
		VerifiedAt: m.VerifiedAt,
	}, nil
}

func challengeFromCore(c *core.WalletChallenge) *challengeModel {
	return &challengeModel{
		ChainFamily: c.Chain.String(),
		Address:     c.Address,
		Nonce:       c.Nonce,
		Message:     c.Message,
		IssuedAt:    c.IssuedAt,
		ExpiresAt:   c.ExpiresAt,
		ConsumedAt:  c.ConsumedAt,
	}
}

func (m *challengeModel) toCore() (*core.WalletChallenge, error) {
	chain, err := core.ParseChainFamily(m.ChainFamily)
	if err != nil {
		return nil, err
	}
	return &core.WalletChallenge{
		Chain:      chain,
		Address:    m.Address,
		Nonce:      m.Nonce,
		Message:    m.Message,
		IssuedAt:   m.IssuedAt,
		ExpiresAt:  m.ExpiresAt,
		ConsumedAt: m.ConsumedAt,
	}, nil
}
