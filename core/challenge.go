package core

import (
	"fmt"
	"strings"
	"time"
)

// WalletChallenge is a one-time nonce record awaiting a wallet signature
type WalletChallenge struct {
	Chain      ChainFamily
	Address    string     // Normalized wallet address
	Nonce      string     // Random nonce to be signed, cleared once consumed
	Message    string     // Exact text the wallet must sign
	IssuedAt   time.Time  // When the challenge was created
	ExpiresAt  time.Time  // When the challenge expires
	ConsumedAt *time.Time // Set exactly once on successful verification
}

// Wallet returns the wallet the challenge was issued for
func (c *WalletChallenge) Wallet() Wallet {
	return Wallet{Chain: c.Chain, Address: c.Address}
}

// Expired reports whether the challenge can no longer be consumed at now
func (c *WalletChallenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Consumed reports whether the challenge has already been used
func (c *WalletChallenge) Consumed() bool {
	return c.ConsumedAt != nil
}

// MessageParams holds the origin details embedded in every challenge message
type MessageParams struct {
	Domain    string
	URI       string
	Statement string
}

// BuildChallengeMessage renders the text a wallet signs for the challenge.
// The domain, address, nonce and timestamps are all part of the signed bytes,
// so a captured signature is useless for another origin or nonce.
func BuildChallengeMessage(p MessageParams, c *WalletChallenge) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s wants you to sign in with your %s account:\n", p.Domain, c.Chain.DisplayName())
	b.WriteString(c.Address)
	b.WriteString("\n\n")
	if p.Statement != "" {
		b.WriteString(p.Statement)
		b.WriteString("\n\n")
	}
	if p.URI != "" {
		fmt.Fprintf(&b, "URI: %s\n", p.URI)
	}
	fmt.Fprintf(&b, "Wallet: %s\n", c.Address)
	fmt.Fprintf(&b, "Nonce: %s\n", c.Nonce)
	fmt.Fprintf(&b, "Timestamp: %s\n", c.IssuedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Expiration Time: %s", c.ExpiresAt.UTC().Format(time.RFC3339))

	return b.String()
}
