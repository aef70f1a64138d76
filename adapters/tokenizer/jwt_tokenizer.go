package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
)

const (
	AudienceLogin   = "session:login"
	AudienceAccess  = "session:access"
	AudienceRefresh = "session:refresh"
)

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
	issuer  string
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey, issuer string) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey, issuer: issuer}
}

func (j *JWTTokenizer) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// parse validates signature, audience and expiry of tokenStr into claims
func (j *JWTTokenizer) parse(tokenStr string, claims jwt.Claims, audience string) error {
	opts := []jwt.ParserOption{
		jwt.WithAudience(audience),
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return core.ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}
	if !token.Valid {
		return core.ErrInvalidToken
	}
	return nil
}

func (j *JWTTokenizer) registered(subject, id, audience string, c *core.Session) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:   j.issuer,
		Subject:  subject,
		ID:       id,
		IssuedAt: jwt.NewNumericDate(c.IssuedAt),
		Audience: jwt.ClaimStrings{audience},
	}
}

// LoginGrantToToken signs a one-time login grant
func (j *JWTTokenizer) LoginGrantToToken(grant *core.LoginGrant) (string, error) {
	return j.sign(LoginClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   grant.AccountID,
			ID:        grant.ID,
			ExpiresAt: jwt.NewNumericDate(grant.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(grant.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceLogin},
		},
		Identity: grant.Identity,
	})
}

// TokenToLoginGrant verifies a login token and returns its grant
func (j *JWTTokenizer) TokenToLoginGrant(tokenStr string) (*core.LoginGrant, error) {
	claims := &LoginClaims{}
	if err := j.parse(tokenStr, claims, AudienceLogin); err != nil {
		return nil, err
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, core.ErrInvalidToken
	}

	return &core.LoginGrant{
		ID:        claims.ID,
		AccountID: claims.Subject,
		Identity:  claims.Identity,
		IssuedAt:  timeOf(claims.IssuedAt),
		ExpiresAt: timeOf(claims.ExpiresAt),
	}, nil
}

// SessionToAccessToken converts a Session to an access JWT token
func (j *JWTTokenizer) SessionToAccessToken(session *core.Session) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: j.registered(session.AccountID, session.ID, AudienceAccess, session),
		RefreshID:        session.RefreshID,
	}
	claims.ExpiresAt = jwt.NewNumericDate(session.AccessExpiry)
	return j.sign(claims)
}

// SessionToRefreshToken converts a Session to a refresh JWT token.
// The refresh token's JWT ID is the session's RefreshID.
func (j *JWTTokenizer) SessionToRefreshToken(session *core.Session) (string, error) {
	claims := RefreshClaims{
		RegisteredClaims: j.registered(session.AccountID, session.RefreshID, AudienceRefresh, session),
	}
	claims.ExpiresAt = jwt.NewNumericDate(session.RefreshExpiry)
	return j.sign(claims)
}

// AccessTokenToSession parses an access token and returns the associated session
func (j *JWTTokenizer) AccessTokenToSession(tokenStr string) (*core.Session, error) {
	claims := &AccessClaims{}
	if err := j.parse(tokenStr, claims, AudienceAccess); err != nil {
		return nil, err
	}

	return &core.Session{
		ID:           claims.ID,
		AccountID:    claims.Subject,
		IssuedAt:     timeOf(claims.IssuedAt),
		AccessExpiry: timeOf(claims.ExpiresAt),
		RefreshID:    claims.RefreshID,
	}, nil
}

// RefreshTokenToSession parses a refresh token. Only the refresh half of the
// session is known; AccessExpiry stays zero.
func (j *JWTTokenizer) RefreshTokenToSession(tokenStr string) (*core.Session, error) {
	claims := &RefreshClaims{}
	if err := j.parse(tokenStr, claims, AudienceRefresh); err != nil {
		return nil, err
	}

	return &core.Session{
		AccountID:     claims.Subject,
		IssuedAt:      timeOf(claims.IssuedAt),
		RefreshExpiry: timeOf(claims.ExpiresAt),
		RefreshID:     claims.ID,
	}, nil
}

func timeOf(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
