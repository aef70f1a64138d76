package core

import "errors"

// Wallet authentication taxonomy. Transport maps each of these to one
// user-facing condition; anything else is an internal failure.
var (
	ErrValidation            = errors.New("validation failed")
	ErrInvalidChainFamily    = errors.New("unsupported chain family")
	ErrInvalidAddress        = errors.New("invalid wallet address")
	ErrChallengeNotFound     = errors.New("challenge not found")
	ErrChallengeExpired      = errors.New("challenge has expired")
	ErrChallengeMismatch     = errors.New("message does not match issued challenge")
	ErrSignatureInvalid      = errors.New("invalid signature")
	ErrWalletAlreadyLinked   = errors.New("wallet already linked to another account")
	ErrAccountNotFound       = errors.New("account not found")
	ErrIdentityConflict      = errors.New("identity already assigned to another account")
	ErrSessionIssuanceFailed = errors.New("session issuance failed")
	ErrUnauthenticated       = errors.New("authentication required")
)

// Session token errors
var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidToken     = errors.New("invalid token")
)
