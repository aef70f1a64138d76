package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
)

// MemoryIdentityStore holds accounts and wallet bindings in memory.
// The bindings map is the uniqueness constraint on (chain, address).
type MemoryIdentityStore struct {
	mu         sync.RWMutex
	accounts   map[string]core.Account
	identities map[string]string // identity -> account id
	bindings   map[string]core.WalletBinding
}

// NewMemoryIdentityStore creates an empty in-memory identity store
func NewMemoryIdentityStore() ports.IdentityStore {
	return &MemoryIdentityStore{
		accounts:   make(map[string]core.Account),
		identities: make(map[string]string),
		bindings:   make(map[string]core.WalletBinding),
	}
}

// FindBinding returns the binding for wallet or nil when it is unbound
func (s *MemoryIdentityStore) FindBinding(ctx context.Context, wallet core.Wallet) (*core.WalletBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bindings[wallet.Key()]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// CreateBinding inserts a binding, failing if the wallet is bound already
func (s *MemoryIdentityStore) CreateBinding(ctx context.Context, binding *core.WalletBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[binding.AccountID]; !ok {
		return core.ErrAccountNotFound
	}
	return s.insertBindingLocked(binding)
}

// CreateAccountWithBinding inserts both rows or neither
func (s *MemoryIdentityStore) CreateAccountWithBinding(ctx context.Context, account *core.Account, binding *core.WalletBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bindings[binding.Wallet().Key()]; ok {
		return core.ErrWalletAlreadyLinked
	}
	if account.Identity() != "" {
		if _, taken := s.identities[account.Identity()]; taken {
			return core.ErrWalletAlreadyLinked
		}
	}

	s.accounts[account.ID] = *account
	if account.Identity() != "" {
		s.identities[account.Identity()] = account.ID
	}
	return s.insertBindingLocked(binding)
}

// TouchBinding records a fresh successful verification
func (s *MemoryIdentityStore) TouchBinding(ctx context.Context, wallet core.Wallet, verifiedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bindings[wallet.Key()]
	if !ok {
		return core.ErrAccountNotFound
	}
	b.VerifiedAt = verifiedAt
	s.bindings[wallet.Key()] = b
	return nil
}

// ListBindings returns every wallet bound to the account, oldest first
func (s *MemoryIdentityStore) ListBindings(ctx context.Context, accountID string) ([]core.WalletBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.WalletBinding
	for _, b := range s.bindings {
		if b.AccountID == accountID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// GetAccount returns the account or core.ErrAccountNotFound
func (s *MemoryIdentityStore) GetAccount(ctx context.Context, accountID string) (*core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	return &a, nil
}

// FindAccountByIdentity resolves an email or login identity to its account
func (s *MemoryIdentityStore) FindAccountByIdentity(ctx context.Context, identity string) (*core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.identities[identity]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	a := s.accounts[id]
	return &a, nil
}

// SetLoginIdentity sets the pseudo-identity once; it never overwrites a different value
func (s *MemoryIdentityStore) SetLoginIdentity(ctx context.Context, accountID, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return core.ErrAccountNotFound
	}
	if a.LoginIdentity == identity {
		return nil
	}
	if a.LoginIdentity != "" {
		return core.ErrIdentityConflict
	}
	if owner, taken := s.identities[identity]; taken && owner != accountID {
		return core.ErrIdentityConflict
	}

	a.LoginIdentity = identity
	s.accounts[accountID] = a
	s.identities[identity] = accountID
	return nil
}

func (s *MemoryIdentityStore) insertBindingLocked(binding *core.WalletBinding) error {
	key := binding.Wallet().Key()
	if _, ok := s.bindings[key]; ok {
		return core.ErrWalletAlreadyLinked
	}
	s.bindings[key] = *binding
	return nil
}
