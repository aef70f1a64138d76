package verifier

import (
	"crypto/ed25519"
	"fmt"

	"github.com/layer-3/walletgate/core"
	"github.com/mr-tron/base58"
)

// SolanaStrategy verifies detached Ed25519 signatures over the raw message.
// The claimed address is the base58 public key itself, so there is no recovery step.
type SolanaStrategy struct{}

// Verify implements Strategy
func (SolanaStrategy) Verify(signature, message []byte, claimedAddress string) core.VerifyResult {
	pub, err := base58ToPublicKey(claimedAddress)
	if err != nil {
		return core.InvalidSignature(err)
	}
	if len(signature) != ed25519.SignatureSize {
		return core.InvalidSignature(fmt.Errorf("%w: got %d, want %d", ErrInvalidSignatureLength, len(signature), ed25519.SignatureSize))
	}
	if !ed25519.Verify(pub, message, signature) {
		return core.InvalidSignature(ErrSignatureMismatch)
	}
	return core.VerifyResult{Valid: true, RecoveredAddress: claimedAddress}
}

func base58ToPublicKey(address string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("%w: base58 decode failed", ErrInvalidPublicKey)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPublicKey, len(decoded), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(decoded), nil
}
