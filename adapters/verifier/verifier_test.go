package verifier

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/walletgate/core"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMessage = "example.com wants you to sign in with your Ethereum account:\nNonce: 9f3a"

// signPersonal signs msg the way browser wallets do: v is 27 or 28
func signPersonal(t *testing.T, msg []byte) ([]byte, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	sig, err := crypto.Sign(accounts.TextHash(msg), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	return sig, crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func TestEVMRoundTrip(t *testing.T) {
	msg := []byte(testMessage)
	sig, addr := signPersonal(t, msg)
	v := New()

	t.Run("recovers_exact_address", func(t *testing.T) {
		res := v.Verify(core.ChainEVM, sig, msg, addr)
		require.True(t, res.Valid, "unexpected error: %v", res.Err)
		assert.Equal(t, addr, res.RecoveredAddress)
	})

	t.Run("address_comparison_ignores_case", func(t *testing.T) {
		res := v.Verify(core.ChainEVM, sig, msg, "0x"+lower(addr[2:]))
		assert.True(t, res.Valid)
	})

	t.Run("raw_recovery_id_accepted", func(t *testing.T) {
		raw := append([]byte(nil), sig...)
		raw[crypto.RecoveryIDOffset] -= 27
		res := v.Verify(core.ChainEVM, raw, msg, addr)
		assert.True(t, res.Valid)
	})

	t.Run("any_flipped_byte_fails", func(t *testing.T) {
		for i := range sig {
			flipped := append([]byte(nil), sig...)
			flipped[i] ^= 0x01
			res := v.Verify(core.ChainEVM, flipped, msg, addr)
			assert.False(t, res.Valid, "byte %d flipped but signature still valid", i)
			assert.Error(t, res.Err)
		}
	})

	t.Run("other_message_fails", func(t *testing.T) {
		res := v.Verify(core.ChainEVM, sig, []byte(testMessage+"!"), addr)
		assert.False(t, res.Valid)
		assert.ErrorIs(t, res.Err, ErrAddressMismatch)
	})

	t.Run("caller_slice_not_mutated", func(t *testing.T) {
		before := append([]byte(nil), sig...)
		v.Verify(core.ChainEVM, sig, msg, addr)
		assert.Equal(t, before, sig)
	})
}

func TestEVMMalformedInputFailsClosed(t *testing.T) {
	v := New()
	msg := []byte(testMessage)
	_, addr := signPersonal(t, msg)

	cases := map[string]struct {
		sig  []byte
		addr string
		err  error
	}{
		"empty_signature": {nil, addr, ErrInvalidSignatureLength},
		"short_signature": {make([]byte, 64), addr, ErrInvalidSignatureLength},
		"long_signature":  {make([]byte, 66), addr, ErrInvalidSignatureLength},
		"bad_recovery_id": {append(make([]byte, 64), 5), addr, ErrInvalidRecoveryID},
		"zero_signature":  {make([]byte, 65), addr, ErrRecoveryFailed},
		"bad_address":     {make([]byte, 65), "not-an-address", ErrInvalidPublicKey},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var res core.VerifyResult
			require.NotPanics(t, func() {
				res = v.Verify(core.ChainEVM, tc.sig, msg, tc.addr)
			})
			assert.False(t, res.Valid)
			assert.ErrorIs(t, res.Err, tc.err)
		})
	}
}

func TestSolanaRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	addr := base58.Encode(pub)
	msg := []byte("example.com wants you to sign in with your Solana account:\nNonce: 9f3a")
	sig := ed25519.Sign(priv, msg)
	v := New()

	t.Run("valid", func(t *testing.T) {
		res := v.Verify(core.ChainSolana, sig, msg, addr)
		require.True(t, res.Valid, "unexpected error: %v", res.Err)
		assert.Equal(t, addr, res.RecoveredAddress)
	})

	t.Run("different_message_fails", func(t *testing.T) {
		res := v.Verify(core.ChainSolana, sig, []byte("another message"), addr)
		assert.False(t, res.Valid)
		assert.ErrorIs(t, res.Err, ErrSignatureMismatch)
	})

	t.Run("other_key_fails", func(t *testing.T) {
		otherPub, _, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		res := v.Verify(core.ChainSolana, sig, msg, base58.Encode(otherPub))
		assert.False(t, res.Valid)
	})

	t.Run("address_is_case_sensitive", func(t *testing.T) {
		res := v.Verify(core.ChainSolana, sig, msg, swapCase(addr))
		assert.False(t, res.Valid)
	})
}

func TestSolanaMalformedInputFailsClosed(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	msg := []byte("hello")
	sig := ed25519.Sign(priv, msg)
	v := New()

	cases := map[string]struct {
		sig  []byte
		addr string
		err  error
	}{
		"bad_base58":       {sig, "0OIl-not-base58", ErrInvalidPublicKey},
		"short_public_key": {sig, base58.Encode(pub[:31]), ErrInvalidPublicKey},
		"empty_address":    {sig, "", ErrInvalidPublicKey},
		"short_signature":  {sig[:63], base58.Encode(pub), ErrInvalidSignatureLength},
		"empty_signature":  {nil, base58.Encode(pub), ErrInvalidSignatureLength},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var res core.VerifyResult
			require.NotPanics(t, func() {
				res = v.Verify(core.ChainSolana, tc.sig, msg, tc.addr)
			})
			assert.False(t, res.Valid)
			assert.ErrorIs(t, res.Err, tc.err)
		})
	}
}

func TestUnknownChainFamily(t *testing.T) {
	res := New().Verify(core.ChainUnknown, make([]byte, 65), []byte("x"), "0x0000000000000000000000000000000000000000")
	assert.False(t, res.Valid)
	assert.ErrorIs(t, res.Err, ErrUnsupportedChain)
}

func lower(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'A' && c <= 'Z' {
			out[i] = c + 32
		}
	}
	return string(out)
}

func swapCase(s string) string {
	out := []byte(s)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z':
			out[i] = c - 32
		case c >= 'A' && c <= 'Z':
			out[i] = c + 32
		}
	}
	return string(out)
}
