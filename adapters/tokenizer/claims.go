package tokenizer

import "github.com/golang-jwt/jwt/v5"

// LoginClaims carry a one-time login grant. Subject is the account ID.
type LoginClaims struct {
	jwt.RegisteredClaims
	Identity string `json:"idn"`
}

// AccessClaims combines standard claims with access-specific ones
type AccessClaims struct {
	jwt.RegisteredClaims
	RefreshID string `json:"rid"` // ID of the refresh token
}

// RefreshClaims are just the standard claims for refresh tokens
type RefreshClaims struct {
	jwt.RegisteredClaims
}
