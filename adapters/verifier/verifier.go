package verifier

import (
	"errors"

	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
)

var (
	ErrUnsupportedChain       = errors.New("no verification strategy for chain family")
	ErrInvalidSignatureLength = errors.New("invalid signature length")
	ErrInvalidRecoveryID      = errors.New("invalid recovery id")
	ErrRecoveryFailed         = errors.New("public key recovery failed")
	ErrInvalidPublicKey       = errors.New("invalid public key")
	ErrAddressMismatch        = errors.New("recovered address does not match")
	ErrSignatureMismatch      = errors.New("signature does not verify")
)

// Strategy verifies signatures for a single chain family
type Strategy interface {
	Verify(signature, message []byte, claimedAddress string) core.VerifyResult
}

// Verifier dispatches to the strategy registered for each chain family
type Verifier struct {
	strategies map[core.ChainFamily]Strategy
}

// New returns a verifier with the EVM and Solana strategies registered
func New() ports.SignatureVerifier {
	return &Verifier{
		strategies: map[core.ChainFamily]Strategy{
			core.ChainEVM:    EVMStrategy{},
			core.ChainSolana: SolanaStrategy{},
		},
	}
}

// Verify implements ports.SignatureVerifier
func (v *Verifier) Verify(chain core.ChainFamily, signature, message []byte, claimedAddress string) core.VerifyResult {
	strategy, ok := v.strategies[chain]
	if !ok {
		return core.InvalidSignature(ErrUnsupportedChain)
	}
	return strategy.Verify(signature, message, claimedAddress)
}
