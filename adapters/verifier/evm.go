package verifier

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/walletgate/core"
)

const evmSignatureLength = crypto.SignatureLength // 65: r || s || v

// EVMStrategy verifies EIP-191 personal_sign signatures by public key recovery.
// personal_sign carries no chain ID, so the result holds for every EVM network.
type EVMStrategy struct{}

// Verify implements Strategy
func (EVMStrategy) Verify(signature, message []byte, claimedAddress string) core.VerifyResult {
	if len(signature) != evmSignatureLength {
		return core.InvalidSignature(fmt.Errorf("%w: got %d, want %d", ErrInvalidSignatureLength, len(signature), evmSignatureLength))
	}
	if !common.IsHexAddress(claimedAddress) {
		return core.InvalidSignature(ErrInvalidPublicKey)
	}

	// Copy so the caller's slice is never mutated by v normalization
	sig := make([]byte, evmSignatureLength)
	copy(sig, signature)

	// Wallets emit v as 27/28; go-ethereum expects the raw recovery id 0/1
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return core.InvalidSignature(ErrInvalidRecoveryID)
	}

	hash := accounts.TextHash(message)

	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return core.InvalidSignature(fmt.Errorf("%w: %v", ErrRecoveryFailed, err))
	}

	recovered := crypto.PubkeyToAddress(*pub).Hex()
	if !strings.EqualFold(recovered, claimedAddress) {
		return core.VerifyResult{Valid: false, RecoveredAddress: recovered, Err: ErrAddressMismatch}
	}

	return core.VerifyResult{Valid: true, RecoveredAddress: recovered}
}
