package walletgate_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletgate"
	"github.com/layer-3/walletgate/adapters/events"
	"github.com/layer-3/walletgate/adapters/identity"
	"github.com/layer-3/walletgate/adapters/store"
	"github.com/layer-3/walletgate/adapters/tokenizer"
	"github.com/layer-3/walletgate/adapters/verifier"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/service"
	transport "github.com/layer-3/walletgate/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tk := tokenizer.NewJWTTokenizer(key, "walletgate")
	ids := store.NewMemoryIdentityStore()

	nonces := service.NewNonceService(store.NewMemoryChallengeStore(), core.MessageParams{Domain: "app.example.com"}, 5*time.Minute)
	wallets := service.NewWalletAuthService(
		nonces,
		verifier.New(),
		service.NewResolver(ids),
		service.NewSessionBridge(ids, identity.NewLocalProvider(ids, tk)),
		events.NopPublisher{},
	)
	auth := service.NewAuthService(tk, store.NewMemoryStore(), ids, events.NopPublisher{}, 0, 0)

	srv := httptest.NewServer(transport.SetupRouter(wallets, auth, transport.RouterOptions{}))
	t.Cleanup(srv.Close)
	return srv
}

type signer struct {
	key     *ecdsa.PrivateKey
	address string
}

func newSigner(t *testing.T) *signer {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey).Hex()}
}

func (s *signer) prove(t *testing.T, c walletgate.Client) walletgate.Proof {
	t.Helper()
	ch, err := c.Nonce(context.Background(), "evm", s.address)
	require.NoError(t, err)

	sig, err := crypto.Sign(accounts.TextHash([]byte(ch.Message)), s.key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return walletgate.ProofFor("evm", s.address, ch, hexutil.Encode(sig))
}

func TestClientSessionFlow(t *testing.T) {
	ctx := context.Background()
	c := walletgate.NewClient(newServer(t).URL + "/")
	primary := newSigner(t)

	res, err := c.Verify(ctx, primary.prove(t, c))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.NotEmpty(t, res.Session.LoginArtifact)

	tokens, err := c.Redeem(ctx, res.Session.LoginArtifact)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tokens.TokenType)

	_, err = c.Redeem(ctx, res.Session.LoginArtifact)
	assert.ErrorIs(t, err, walletgate.ErrUnauthorized)

	linked, err := c.Link(ctx, tokens.AccessToken, newSigner(t).prove(t, c))
	require.NoError(t, err)
	assert.True(t, linked.Success)

	me, err := c.Me(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.Session.User.ID, me.ID)
	assert.Len(t, me.Wallets, 2)

	rotated, err := c.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	require.NoError(t, c.Logout(ctx, rotated.RefreshToken))
	_, err = c.Me(ctx, rotated.AccessToken)
	assert.ErrorIs(t, err, walletgate.ErrUnauthorized)
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	c := walletgate.NewClient(newServer(t).URL)
	s := newSigner(t)

	_, err := c.Nonce(ctx, "btc", s.address)
	assert.ErrorIs(t, err, walletgate.ErrInvalidRequest)

	proof := s.prove(t, c)
	proof.Nonce = "deadbeef"
	_, err = c.Verify(ctx, proof)
	assert.ErrorIs(t, err, walletgate.ErrChallengeNotFound)

	var apiErr *walletgate.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)

	// Re-sign with another key: the nonce survives a bad signature.
	proof = s.prove(t, c)
	other := newSigner(t)
	sig, err := crypto.Sign(accounts.TextHash([]byte(proof.Message)), other.key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	bad := proof
	bad.Signature = hexutil.Encode(sig)
	_, err = c.Verify(ctx, bad)
	assert.ErrorIs(t, err, walletgate.ErrInvalidSignature)

	_, err = c.Verify(ctx, proof)
	require.NoError(t, err)
	_, err = c.Verify(ctx, proof)
	assert.ErrorIs(t, err, walletgate.ErrChallengeNotFound)

	// A wallet already bound to another account cannot be linked.
	first, err := c.Verify(ctx, newSigner(t).prove(t, c))
	require.NoError(t, err)
	tokens, err := c.Redeem(ctx, first.Session.LoginArtifact)
	require.NoError(t, err)
	_, err = c.Link(ctx, tokens.AccessToken, s.prove(t, c))
	assert.ErrorIs(t, err, walletgate.ErrWalletAlreadyLinked)
}
