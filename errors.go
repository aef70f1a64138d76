package walletgate

import (
	"errors"
	"fmt"
)

var (
	// ErrChallengeNotFound is returned when the nonce is unknown or already used
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrChallengeExpired is returned when the nonce outlived its TTL
	ErrChallengeExpired = errors.New("challenge expired")

	// ErrInvalidSignature is returned when the signature does not match the wallet
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrWalletAlreadyLinked is returned when the wallet belongs to another account
	ErrWalletAlreadyLinked = errors.New("wallet already linked")

	// ErrInvalidRequest is returned for malformed input, wallet types and addresses
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnauthorized is returned when a token is missing, invalid or expired
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited is returned when the server throttles the caller
	ErrRateLimited = errors.New("rate limited")
)

var codeErrors = map[string]error{
	"challenge_not_found":     ErrChallengeNotFound,
	"challenge_expired":       ErrChallengeExpired,
	"invalid_signature":       ErrInvalidSignature,
	"wallet_already_linked":   ErrWalletAlreadyLinked,
	"invalid_request":         ErrInvalidRequest,
	"invalid_wallet_type":     ErrInvalidRequest,
	"invalid_address":         ErrInvalidRequest,
	"authentication_required": ErrUnauthorized,
	"invalid_token":           ErrUnauthorized,
	"token_expired":           ErrUnauthorized,
	"token_invalidated":       ErrUnauthorized,
	"rate_limited":            ErrRateLimited,
}

// APIError is a non-2xx response from the server
type APIError struct {
	Status int
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("walletgate: %d %s", e.Status, e.Code)
}

// Unwrap lets errors.Is match the sentinel for the error code
func (e *APIError) Unwrap() error {
	return codeErrors[e.Code]
}
