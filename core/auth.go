package core

import "time"

// LoginGrant is a one-time proof of control over an identity record,
// redeemable for a Session exactly once.
type LoginGrant struct {
	ID        string    // Unique identifier, single-use
	AccountID string    // Account the grant logs into
	Identity  string    // Identity the grant was requested for
	IssuedAt  time.Time // When the grant was created
	ExpiresAt time.Time // When the grant expires
}

// SessionArtifact is what the session bridge hands back after wallet verification
type SessionArtifact struct {
	LoginArtifact string
	ExpiresAt     time.Time
	AccountID     string
	Wallet        Wallet
}

// Session represents an authenticated platform session
type Session struct {
	ID            string    // Unique session identifier
	AccountID     string    // Account the session belongs to
	IssuedAt      time.Time // When the session was created
	RefreshExpiry time.Time // When the refresh capability expires
	AccessExpiry  time.Time // When the access capability expires
	RefreshID     string    // Unique identifier for the refresh token
}
