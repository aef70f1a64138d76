package ports

import "github.com/layer-3/walletgate/core"

// SignatureVerifier checks that signature over message was produced by the
// key behind claimedAddress. It never returns an error for malformed input;
// the result is simply invalid.
type SignatureVerifier interface {
	Verify(chain core.ChainFamily, signature, message []byte, claimedAddress string) core.VerifyResult
}
