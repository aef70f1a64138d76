package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/service"
)

const (
	flowAuthenticate = "authenticate"
	flowLink         = "link"
	outcomeOK        = "ok"
)

// WalletHandlers contains HTTP handlers for the wallet challenge endpoints
type WalletHandlers struct {
	wallets *service.WalletAuthService
	metrics *Metrics
}

// NewWalletHandlers creates new wallet handlers
func NewWalletHandlers(wallets *service.WalletAuthService, metrics *Metrics) *WalletHandlers {
	return &WalletHandlers{wallets: wallets, metrics: metrics}
}

type nonceRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	WalletType    string `json:"walletType" binding:"required"`
}

type proofRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	WalletType    string `json:"walletType" binding:"required"`
	Signature     string `json:"signature" binding:"required"`
	Message       string `json:"message" binding:"required"`
	Nonce         string `json:"nonce" binding:"required"`
}

func (r proofRequest) proof() service.WalletProof {
	return service.WalletProof{
		WalletType:    r.WalletType,
		WalletAddress: r.WalletAddress,
		Signature:     r.Signature,
		Message:       r.Message,
		Nonce:         r.Nonce,
	}
}

// walletTypeLabel keeps metric label cardinality bounded
func walletTypeLabel(walletType string) string {
	chain, err := core.ParseChainFamily(walletType)
	if err != nil {
		return core.ChainUnknown.String()
	}
	return chain.String()
}

// Nonce issues a challenge for the wallet
func (h *WalletHandlers) Nonce(c *gin.Context) {
	var req nonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendErr(c, http.StatusBadRequest, CodeInvalidRequest)
		return
	}

	challenge, err := h.wallets.IssueChallenge(c.Request.Context(), req.WalletType, req.WalletAddress)
	if err != nil {
		respondError(c, err, "failed to issue wallet challenge")
		return
	}
	h.metrics.challengeIssued(challenge.Chain.String())

	c.JSON(http.StatusOK, gin.H{
		"nonce":     challenge.Nonce,
		"message":   challenge.Message,
		"issuedAt":  challenge.IssuedAt.UTC().Format(time.RFC3339),
		"expiresAt": challenge.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Verify proves wallet ownership and returns a login artifact
func (h *WalletHandlers) Verify(c *gin.Context) {
	var req proofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendErr(c, http.StatusBadRequest, CodeInvalidRequest)
		return
	}
	label := walletTypeLabel(req.WalletType)

	res, err := h.wallets.VerifyAndAuthenticate(c.Request.Context(), req.proof())
	if err != nil {
		code := respondError(c, err, "wallet verification failed")
		h.metrics.verification(flowAuthenticate, label, code)
		return
	}
	h.metrics.verification(flowAuthenticate, label, outcomeOK)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"created": res.Created,
		"session": gin.H{
			"loginArtifact": res.Session.LoginArtifact,
			"expiresAt":     res.Session.ExpiresAt.UTC().Format(time.RFC3339),
			"user": gin.H{
				"id":            res.Session.AccountID,
				"walletAddress": res.Session.Wallet.Address,
			},
		},
	})
}

// Link binds the proven wallet to the authenticated account
func (h *WalletHandlers) Link(c *gin.Context) {
	accountID := c.GetString(ctxAccountID)
	if accountID == "" {
		SendErr(c, http.StatusUnauthorized, CodeAuthRequired)
		return
	}

	var req proofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendErr(c, http.StatusBadRequest, CodeInvalidRequest)
		return
	}
	label := walletTypeLabel(req.WalletType)

	res, err := h.wallets.VerifyAndLink(c.Request.Context(), accountID, req.proof())
	if err != nil {
		code := respondError(c, err, "wallet link failed")
		h.metrics.verification(flowLink, label, code)
		return
	}
	h.metrics.verification(flowLink, label, outcomeOK)

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"walletAddress": res.Wallet.Address,
		"walletType":    res.Wallet.Chain.String(),
	})
}
