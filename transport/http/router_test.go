package http

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletgate/adapters/events"
	"github.com/layer-3/walletgate/adapters/identity"
	"github.com/layer-3/walletgate/adapters/store"
	"github.com/layer-3/walletgate/adapters/tokenizer"
	"github.com/layer-3/walletgate/adapters/verifier"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, opts RouterOptions) *gin.Engine {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tk := tokenizer.NewJWTTokenizer(key, "walletgate")
	ids := store.NewMemoryIdentityStore()

	nonces := service.NewNonceService(store.NewMemoryChallengeStore(), core.MessageParams{Domain: "app.example.com"}, 5*time.Minute)
	bridge := service.NewSessionBridge(ids, identity.NewLocalProvider(ids, tk))
	wallets := service.NewWalletAuthService(nonces, verifier.New(), service.NewResolver(ids), bridge, events.NopPublisher{})
	auth := service.NewAuthService(tk, store.NewMemoryStore(), ids, events.NopPublisher{}, 0, 0)
	return SetupRouter(wallets, auth, opts)
}

func do(t *testing.T, r http.Handler, method, path, bearer string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" && bytes.HasPrefix(w.Body.Bytes(), []byte("{")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

type evmWallet struct {
	key     *ecdsa.PrivateKey
	address string
}

func newWallet(t *testing.T) *evmWallet {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &evmWallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey).Hex()}
}

func (w *evmWallet) proof(t *testing.T, r http.Handler) map[string]string {
	t.Helper()
	code, ch := do(t, r, http.MethodPost, "/auth/wallet/nonce", "", map[string]string{
		"walletAddress": w.address,
		"walletType":    "evm",
	})
	require.Equal(t, http.StatusOK, code)

	msg := ch["message"].(string)
	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), w.key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	return map[string]string{
		"walletAddress": w.address,
		"walletType":    "evm",
		"signature":     hexutil.Encode(sig),
		"message":       msg,
		"nonce":         ch["nonce"].(string),
	}
}

// login runs verify and redeem, returning the account id and access token
func login(t *testing.T, r http.Handler, w *evmWallet) (string, string) {
	t.Helper()
	code, body := do(t, r, http.MethodPost, "/auth/wallet/verify", "", w.proof(t, r))
	require.Equal(t, http.StatusOK, code, "verify failed: %v", body)
	session := body["session"].(map[string]any)

	code, tokens := do(t, r, http.MethodPost, "/auth/session/redeem", "", map[string]string{
		"loginArtifact": session["loginArtifact"].(string),
	})
	require.Equal(t, http.StatusOK, code)
	return session["user"].(map[string]any)["id"].(string), tokens["access_token"].(string)
}

func TestWalletFlow(t *testing.T) {
	r := newTestRouter(t, RouterOptions{Metrics: NewMetrics()})
	primary := newWallet(t)

	code, body := do(t, r, http.MethodPost, "/auth/wallet/verify", "", primary.proof(t, r))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["created"])

	accountID, access := login(t, r, primary)

	secondary := newWallet(t)
	code, body = do(t, r, http.MethodPost, "/auth/wallet/link", access, secondary.proof(t, r))
	require.Equal(t, http.StatusOK, code, "link failed: %v", body)
	assert.Equal(t, "evm", body["walletType"])

	code, me := do(t, r, http.MethodGet, "/api/me", access, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, accountID, me["id"])
	assert.Len(t, me["wallets"], 2)
}

func TestWalletErrors(t *testing.T) {
	r := newTestRouter(t, RouterOptions{})
	w := newWallet(t)

	t.Run("missing_fields", func(t *testing.T) {
		code, body := do(t, r, http.MethodPost, "/auth/wallet/verify", "", map[string]string{"walletType": "evm"})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, CodeInvalidRequest, body["error"])
	})

	t.Run("unknown_wallet_type", func(t *testing.T) {
		code, body := do(t, r, http.MethodPost, "/auth/wallet/nonce", "", map[string]string{"walletType": "btc", "walletAddress": w.address})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, CodeInvalidWalletType, body["error"])
	})

	t.Run("malformed_address", func(t *testing.T) {
		code, body := do(t, r, http.MethodPost, "/auth/wallet/nonce", "", map[string]string{"walletType": "evm", "walletAddress": "0x12"})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, CodeInvalidAddress, body["error"])
	})

	t.Run("unknown_nonce", func(t *testing.T) {
		proof := w.proof(t, r)
		proof["nonce"] = "deadbeef"
		code, body := do(t, r, http.MethodPost, "/auth/wallet/verify", "", proof)
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, CodeChallengeNotFound, body["error"])
	})

	t.Run("bad_signature", func(t *testing.T) {
		proof := w.proof(t, r)
		proof["signature"] = "0x" + fmt.Sprintf("%0130x", 1)
		code, body := do(t, r, http.MethodPost, "/auth/wallet/verify", "", proof)
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, CodeInvalidSignature, body["error"])
	})

	t.Run("link_requires_auth", func(t *testing.T) {
		code, body := do(t, r, http.MethodPost, "/auth/wallet/link", "", w.proof(t, r))
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, CodeAuthRequired, body["error"])
	})

	t.Run("link_wallet_bound_elsewhere", func(t *testing.T) {
		other := newWallet(t)
		login(t, r, other)
		_, access := login(t, r, newWallet(t))

		code, body := do(t, r, http.MethodPost, "/auth/wallet/link", access, other.proof(t, r))
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, CodeWalletAlreadyLinked, body["error"])
	})
}

func TestNonceRateLimit(t *testing.T) {
	metrics := NewMetrics()
	r := newTestRouter(t, RouterOptions{NonceLimiter: NewMapLimiter(0.001, 1, time.Minute), Metrics: metrics})
	w := newWallet(t)
	req := map[string]string{"walletAddress": w.address, "walletType": "evm"}

	code, _ := do(t, r, http.MethodPost, "/auth/wallet/nonce", "", req)
	assert.Equal(t, http.StatusOK, code)
	code, body := do(t, r, http.MethodPost, "/auth/wallet/nonce", "", req)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, CodeRateLimited, body["error"])

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `walletgate_rate_limited_total{bucket="wallet_nonce"} 1`)
	assert.Contains(t, rec.Body.String(), `walletgate_challenges_issued_total{wallet_type="evm"} 1`)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: %w", core.ErrSignatureInvalid, core.ErrChallengeMismatch), http.StatusUnauthorized, CodeInvalidSignature},
		{fmt.Errorf("%w: %w", core.ErrSessionIssuanceFailed, core.ErrAccountNotFound), http.StatusInternalServerError, CodeSessionIssuanceFailed},
		{core.ErrChallengeExpired, http.StatusNotFound, CodeChallengeExpired},
		{core.ErrWalletAlreadyLinked, http.StatusConflict, CodeWalletAlreadyLinked},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		status, code := classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}
