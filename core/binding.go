package core

import "time"

// Account is the minimal platform identity record owned by the platform.
// Wallet-native accounts have no email and log in through LoginIdentity.
type Account struct {
	ID            string
	Email         string
	LoginIdentity string
	CreatedAt     time.Time
}

// Identity returns the identity used with the identity provider, if any
func (a *Account) Identity() string {
	if a.Email != "" {
		return a.Email
	}
	return a.LoginIdentity
}

// WalletBinding ties a verified wallet to exactly one account
type WalletBinding struct {
	Chain      ChainFamily
	Address    string
	AccountID  string
	CreatedAt  time.Time
	VerifiedAt time.Time
}

// Wallet returns the bound wallet
func (b *WalletBinding) Wallet() Wallet {
	return Wallet{Chain: b.Chain, Address: b.Address}
}

// Resolution is the outcome of an identity resolver transition
type Resolution struct {
	AccountID      string
	Wallet         Wallet
	AccountCreated bool // sign-up path created a new account
	BindingCreated bool // a new binding row was written
}

// VerifyResult is the outcome of a signature check. Malformed input yields
// Valid=false with Err describing why; it is never a panic or a thrown error.
type VerifyResult struct {
	Valid            bool
	RecoveredAddress string
	Err              error
}

// InvalidSignature builds a failed VerifyResult
func InvalidSignature(err error) VerifyResult {
	return VerifyResult{Valid: false, Err: err}
}
