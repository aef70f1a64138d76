package walletgate

import (
	"context"
	"time"
)

// Client represents the public interface for interacting with a walletgate server
type Client interface {
	// Nonce requests a sign-in challenge for a wallet
	Nonce(ctx context.Context, walletType, address string) (*Challenge, error)

	// Verify submits a signed challenge and returns a login artifact
	Verify(ctx context.Context, proof Proof) (*VerifyResult, error)

	// Redeem exchanges a login artifact for access and refresh tokens
	Redeem(ctx context.Context, loginArtifact string) (*Tokens, error)

	// Link binds another wallet to the account behind the access token
	Link(ctx context.Context, accessToken string, proof Proof) (*LinkResult, error)

	// Refresh rotates the refresh token and returns new tokens
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)

	// Logout invalidates the refresh token and its access tokens
	Logout(ctx context.Context, refreshToken string) error

	// Me returns the account behind the access token
	Me(ctx context.Context, accessToken string) (*Account, error)
}

// Challenge is the message a wallet has to sign
type Challenge struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Proof is a signed challenge
type Proof struct {
	WalletAddress string `json:"walletAddress"`
	WalletType    string `json:"walletType"`
	Signature     string `json:"signature"`
	Message       string `json:"message"`
	Nonce         string `json:"nonce"`
}

// ProofFor builds a proof from a challenge and the wallet's signature over its message
func ProofFor(walletType, address string, ch *Challenge, signature string) Proof {
	return Proof{
		WalletAddress: address,
		WalletType:    walletType,
		Signature:     signature,
		Message:       ch.Message,
		Nonce:         ch.Nonce,
	}
}

// VerifyResult is the response to a successful wallet verification
type VerifyResult struct {
	Success bool    `json:"success"`
	Created bool    `json:"created"`
	Session Session `json:"session"`
}

// Session carries the one-time login artifact to redeem for tokens
type Session struct {
	LoginArtifact string      `json:"loginArtifact"`
	ExpiresAt     time.Time   `json:"expiresAt"`
	User          SessionUser `json:"user"`
}

// SessionUser identifies the account a login artifact belongs to
type SessionUser struct {
	ID            string `json:"id"`
	WalletAddress string `json:"walletAddress"`
}

// LinkResult acknowledges a wallet linked to the caller's account
type LinkResult struct {
	Success       bool   `json:"success"`
	WalletAddress string `json:"walletAddress"`
	WalletType    string `json:"walletType"`
}

// Tokens is an access and refresh token pair
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Account is the authenticated account with its wallets
type Account struct {
	ID      string   `json:"id"`
	Email   string   `json:"email"`
	Wallets []Wallet `json:"wallets"`
}

// Wallet is a wallet bound to an account
type Wallet struct {
	WalletType    string    `json:"walletType"`
	WalletAddress string    `json:"walletAddress"`
	CreatedAt     time.Time `json:"createdAt"`
	VerifiedAt    time.Time `json:"verifiedAt"`
}
