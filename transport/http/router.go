package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletgate/service"
)

// Rate limit bucket names
const (
	RLWalletNonce  = "wallet_nonce"
	RLWalletVerify = "wallet_verify"
)

// RouterOptions holds optional transport dependencies
type RouterOptions struct {
	NonceLimiter  *MapLimiter
	VerifyLimiter *MapLimiter
	Metrics       *Metrics
}

// SetupRouter sets up the Gin router
func SetupRouter(wallets *service.WalletAuthService, authService *service.AuthService, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())

	walletHandlers := NewWalletHandlers(wallets, opts.Metrics)
	handlers := NewAuthHandlers(authService)
	requireAuth := AuthMiddleware(authService)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))

	// Wallet challenge routes
	wallet := router.Group("/auth/wallet")
	{
		wallet.POST("/nonce", RateLimitMiddleware(opts.NonceLimiter, RLWalletNonce, opts.Metrics), walletHandlers.Nonce)
		wallet.POST("/verify", RateLimitMiddleware(opts.VerifyLimiter, RLWalletVerify, opts.Metrics), walletHandlers.Verify)
		wallet.POST("/link", requireAuth, RateLimitMiddleware(opts.VerifyLimiter, RLWalletVerify, opts.Metrics), walletHandlers.Link)
	}

	// Session routes
	auth := router.Group("/auth")
	{
		auth.POST("/session/redeem", handlers.Redeem)
		auth.POST("/refresh", handlers.Refresh)
		auth.POST("/logout", handlers.Logout)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(requireAuth)
	{
		api.GET("/me", handlers.Me)
	}

	return router
}
