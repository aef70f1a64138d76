package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/service"
)

// AuthHandlers contains HTTP handlers for session endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

func tokenResponse(c *gin.Context, pair *service.TokenPair) {
	expiresIn := int(time.Until(pair.AccessExpiry).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    expiresIn,
	})
}

// Redeem exchanges a login artifact for access and refresh tokens
func (h *AuthHandlers) Redeem(c *gin.Context) {
	var req struct {
		LoginArtifact string `json:"loginArtifact" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		SendErr(c, http.StatusBadRequest, CodeInvalidRequest)
		return
	}

	pair, err := h.authService.Redeem(c.Request.Context(), req.LoginArtifact)
	if err != nil {
		respondError(c, err, "failed to redeem login artifact")
		return
	}
	tokenResponse(c, pair)
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		SendErr(c, http.StatusBadRequest, CodeInvalidRequest)
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err, "failed to refresh tokens")
		return
	}
	tokenResponse(c, pair)
}

// Logout handles session logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		SendErr(c, http.StatusBadRequest, CodeInvalidRequest)
		return
	}

	err := h.authService.Logout(c.Request.Context(), req.RefreshToken)
	if err != nil && !errors.Is(err, core.ErrTokenExpired) {
		respondError(c, err, "failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the authenticated account and its wallets
func (h *AuthHandlers) Me(c *gin.Context) {
	accountID := c.GetString(ctxAccountID)

	profile, err := h.authService.Me(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err, "failed to load account")
		return
	}

	wallets := make([]gin.H, 0, len(profile.Wallets))
	for _, w := range profile.Wallets {
		wallets = append(wallets, gin.H{
			"walletType":    w.Chain.String(),
			"walletAddress": w.Address,
			"createdAt":     w.CreatedAt.UTC().Format(time.RFC3339),
			"verifiedAt":    w.VerifiedAt.UTC().Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"id":      profile.Account.ID,
		"email":   profile.Account.Email,
		"wallets": wallets,
	})
}
