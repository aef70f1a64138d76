package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/service"
	log "github.com/sirupsen/logrus"
)

// Context keys set by AuthMiddleware
const (
	ctxAccountID = "accountID"
	ctxSession   = "session"
)

// BearerToken extracts a Bearer token from an Authorization header value
func BearerToken(authorization string) string {
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// AuthMiddleware creates middleware that validates access tokens
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			SendErr(c, http.StatusUnauthorized, CodeAuthRequired)
			return
		}

		session, err := authService.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, core.ErrTokenExpired) {
				SendErr(c, http.StatusUnauthorized, CodeTokenExpired)
			} else {
				SendErr(c, http.StatusUnauthorized, CodeAuthRequired)
			}
			return
		}

		c.Set(ctxAccountID, session.AccountID)
		c.Set(ctxSession, session)
		c.Next()
	}
}

// RequestLogger writes one logrus entry per request
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"status":   c.Writer.Status(),
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"client":   c.ClientIP(),
			"duration": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}
