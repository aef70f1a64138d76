package core

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mr-tron/base58"
)

// ChainFamily identifies the signature and address scheme of a wallet.
type ChainFamily uint8

const (
	// ChainUnknown is the zero value and never valid
	ChainUnknown ChainFamily = iota
	// ChainEVM covers Ethereum and EVM-compatible networks (secp256k1)
	ChainEVM
	// ChainSolana covers Solana wallets (Ed25519)
	ChainSolana
)

const solanaPublicKeySize = 32

// ParseChainFamily converts a wire value ("evm", "solana") into a ChainFamily.
func ParseChainFamily(s string) (ChainFamily, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "evm", "ethereum", "eth":
		return ChainEVM, nil
	case "solana", "sol":
		return ChainSolana, nil
	default:
		return ChainUnknown, fmt.Errorf("%w: unsupported wallet type %q", ErrInvalidChainFamily, s)
	}
}

// String returns the wire value of the chain family
func (c ChainFamily) String() string {
	switch c {
	case ChainEVM:
		return "evm"
	case ChainSolana:
		return "solana"
	default:
		return "unknown"
	}
}

// DisplayName is the human readable network family used in challenge messages
func (c ChainFamily) DisplayName() string {
	switch c {
	case ChainEVM:
		return "Ethereum"
	case ChainSolana:
		return "Solana"
	default:
		return "Unknown"
	}
}

// Valid reports whether c is a supported chain family
func (c ChainFamily) Valid() bool {
	return c == ChainEVM || c == ChainSolana
}

// MarshalText implements encoding.TextMarshaler
func (c ChainFamily) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, ErrInvalidChainFamily
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *ChainFamily) UnmarshalText(text []byte) error {
	parsed, err := ParseChainFamily(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// NormalizeAddress validates addr for the chain family and returns its canonical form.
// EVM addresses are lower-cased 0x-prefixed hex; Solana addresses are kept verbatim
// since base58 is case-sensitive.
func (c ChainFamily) NormalizeAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	switch c {
	case ChainEVM:
		if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
			return "", fmt.Errorf("%w: evm address must be 0x-prefixed", ErrInvalidAddress)
		}
		if !common.IsHexAddress(addr) {
			return "", fmt.Errorf("%w: malformed evm address", ErrInvalidAddress)
		}
		return strings.ToLower(common.HexToAddress(addr).Hex()), nil

	case ChainSolana:
		decoded, err := base58.Decode(addr)
		if err != nil {
			return "", fmt.Errorf("%w: base58 decode failed", ErrInvalidAddress)
		}
		if len(decoded) != solanaPublicKeySize {
			return "", fmt.Errorf("%w: solana address must decode to %d bytes, got %d", ErrInvalidAddress, solanaPublicKeySize, len(decoded))
		}
		return addr, nil

	default:
		return "", ErrInvalidChainFamily
	}
}

// SameAddress compares two addresses using the chain family's case rules
func (c ChainFamily) SameAddress(a, b string) bool {
	if c == ChainEVM {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

// DecodeSignature turns the wire encoding of a signature into raw bytes.
// EVM signatures are hex (0x optional). Solana signatures are base58, with
// base64 accepted as a fallback since some wallet adapters emit it.
func (c ChainFamily) DecodeSignature(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("%w: empty signature", ErrSignatureInvalid)
	}

	switch c {
	case ChainEVM:
		if !strings.HasPrefix(encoded, "0x") && !strings.HasPrefix(encoded, "0X") {
			encoded = "0x" + encoded
		}
		sig, err := hexutil.Decode(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: hex decode failed", ErrSignatureInvalid)
		}
		return sig, nil

	case ChainSolana:
		// An unpadded base64 string can also be valid base58, so each
		// decoding only counts when it yields a full Ed25519 signature.
		if sig, err := base58.Decode(encoded); err == nil && len(sig) == ed25519.SignatureSize {
			return sig, nil
		}
		if sig, err := base64.StdEncoding.DecodeString(encoded); err == nil && len(sig) == ed25519.SignatureSize {
			return sig, nil
		}
		if sig, err := base64.RawURLEncoding.DecodeString(encoded); err == nil && len(sig) == ed25519.SignatureSize {
			return sig, nil
		}
		return nil, fmt.Errorf("%w: signature is not a 64-byte base58 or base64 value", ErrSignatureInvalid)

	default:
		return nil, ErrInvalidChainFamily
	}
}

// Wallet is a normalized (chain family, address) pair
type Wallet struct {
	Chain   ChainFamily
	Address string
}

// NewWallet validates and normalizes the address for the given chain family
func NewWallet(chain ChainFamily, address string) (Wallet, error) {
	if !chain.Valid() {
		return Wallet{}, ErrInvalidChainFamily
	}
	normalized, err := chain.NormalizeAddress(address)
	if err != nil {
		return Wallet{}, err
	}
	return Wallet{Chain: chain, Address: normalized}, nil
}

// Key is the storage key of the wallet, unique across chain families
func (w Wallet) Key() string {
	return w.Chain.String() + ":" + w.Address
}

// PseudoIdentity is the stable, non-routable login identity synthesized for
// wallet-native accounts. The .invalid TLD is reserved and never delivers mail.
// Solana keys are rendered as hex so that providers which lower-case emails
// cannot fold two base58 addresses into one identity.
func (w Wallet) PseudoIdentity() string {
	local := strings.TrimPrefix(strings.ToLower(w.Address), "0x")
	if w.Chain == ChainSolana {
		if decoded, err := base58.Decode(w.Address); err == nil {
			local = hex.EncodeToString(decoded)
		}
	}
	return fmt.Sprintf("%s.%s@wallet.invalid", w.Chain.String(), local)
}
