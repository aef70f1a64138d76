package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletgate/core"
	log "github.com/sirupsen/logrus"
)

// Error codes returned in {"error": "<code>"} bodies
const (
	CodeInvalidRequest        = "invalid_request"
	CodeInvalidWalletType     = "invalid_wallet_type"
	CodeInvalidAddress        = "invalid_address"
	CodeChallengeNotFound     = "challenge_not_found"
	CodeChallengeExpired      = "challenge_expired"
	CodeInvalidSignature      = "invalid_signature"
	CodeWalletAlreadyLinked   = "wallet_already_linked"
	CodeAuthRequired          = "authentication_required"
	CodeSessionIssuanceFailed = "session_issuance_failed"
	CodeRateLimited           = "rate_limited"
	CodeInternal              = "internal_error"
	CodeInvalidToken          = "invalid_token"
	CodeTokenExpired          = "token_expired"
	CodeTokenInvalidated      = "token_invalidated"
	CodeAccountNotFound       = "account_not_found"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable is checked in order; wrappers come before what they wrap.
var errorTable = []errorMapping{
	{core.ErrSessionIssuanceFailed, http.StatusInternalServerError, CodeSessionIssuanceFailed},
	{core.ErrInvalidChainFamily, http.StatusBadRequest, CodeInvalidWalletType},
	{core.ErrInvalidAddress, http.StatusBadRequest, CodeInvalidAddress},
	{core.ErrValidation, http.StatusBadRequest, CodeInvalidRequest},
	{core.ErrChallengeNotFound, http.StatusNotFound, CodeChallengeNotFound},
	{core.ErrChallengeExpired, http.StatusNotFound, CodeChallengeExpired},
	{core.ErrSignatureInvalid, http.StatusUnauthorized, CodeInvalidSignature},
	{core.ErrWalletAlreadyLinked, http.StatusConflict, CodeWalletAlreadyLinked},
	{core.ErrUnauthenticated, http.StatusUnauthorized, CodeAuthRequired},
	{core.ErrTokenExpired, http.StatusUnauthorized, CodeTokenExpired},
	{core.ErrTokenInvalidated, http.StatusUnauthorized, CodeTokenInvalidated},
	{core.ErrInvalidToken, http.StatusUnauthorized, CodeInvalidToken},
	{core.ErrAccountNotFound, http.StatusNotFound, CodeAccountNotFound},
}

// classify maps a service error onto a status and error code
func classify(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// SendErr aborts the request with a JSON error body
func SendErr(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code})
}

// ServerErrWithLog logs the underlying error before responding with a server error
func ServerErrWithLog(c *gin.Context, code string, err error, message string) {
	entry := log.WithContext(c.Request.Context()).WithFields(log.Fields{
		"code":   code,
		"path":   c.FullPath(),
		"method": c.Request.Method,
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	if strings.TrimSpace(message) == "" {
		message = "walletgate server error"
	}
	entry.Error(message)
	SendErr(c, http.StatusInternalServerError, code)
}

// respondError writes the mapped error and returns its code for metrics
func respondError(c *gin.Context, err error, message string) string {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		ServerErrWithLog(c, code, err, message)
		return code
	}
	SendErr(c, status, code)
	return code
}
