package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
	log "github.com/sirupsen/logrus"
)

// TokenPair is an issued access/refresh pair
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExpiry time.Time
}

// Profile is the authenticated account with its wallets
type Profile struct {
	Account *core.Account
	Wallets []core.WalletBinding
}

// AuthService manages platform sessions once an identity has been proven
type AuthService struct {
	tokenizer ports.Tokenizer
	store     ports.TokenStore
	accounts  ports.IdentityStore
	eventPub  ports.EventPublisher

	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewAuthService creates a new session service
func NewAuthService(
	tokenizer ports.Tokenizer,
	store ports.TokenStore,
	accounts ports.IdentityStore,
	eventPub ports.EventPublisher,
	accessTTL, refreshTTL time.Duration,
) *AuthService {
	if accessTTL <= 0 {
		accessTTL = 5 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 5 * 24 * time.Hour // 5 days
	}
	return &AuthService{
		tokenizer:  tokenizer,
		store:      store,
		accounts:   accounts,
		eventPub:   eventPub,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Redeem exchanges a one-time login artifact for a session
func (s *AuthService) Redeem(ctx context.Context, loginArtifact string) (*TokenPair, error) {
	grant, err := s.tokenizer.TokenToLoginGrant(loginArtifact)
	if err != nil {
		return nil, fmt.Errorf("invalid login artifact: %w", err)
	}

	remaining := grant.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return nil, core.ErrTokenExpired
	}

	fresh, err := s.store.ConsumeToken(ctx, grant.ID, remaining)
	if err != nil {
		return nil, fmt.Errorf("failed to consume login artifact: %w", err)
	}
	if !fresh {
		return nil, core.ErrTokenInvalidated
	}

	if _, err := s.accounts.GetAccount(ctx, grant.AccountID); err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	return s.issue(grant.AccountID)
}

// Refresh rotates the refresh token and issues new access and refresh tokens
func (s *AuthService) Refresh(ctx context.Context, refreshTokenStr string) (*TokenPair, error) {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	remaining := session.RefreshExpiry.Sub(s.now())
	if remaining <= 0 {
		return nil, core.ErrTokenExpired
	}

	// Consuming the old refresh ID both checks and invalidates it, so two
	// concurrent refreshes with the same token cannot both succeed.
	fresh, err := s.store.ConsumeToken(ctx, session.RefreshID, remaining)
	if err != nil {
		return nil, fmt.Errorf("failed to invalidate old token: %w", err)
	}
	if !fresh {
		return nil, core.ErrTokenInvalidated
	}

	return s.issue(session.AccountID)
}

// Logout invalidates a refresh token, and with it every access token issued alongside
func (s *AuthService) Logout(ctx context.Context, refreshTokenStr string) error {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return fmt.Errorf("invalid refresh token: %w", err)
	}

	// Already-expired tokens keep a short invalidation record for clock skew
	remaining := session.RefreshExpiry.Sub(s.now())
	if remaining <= 0 {
		remaining = time.Hour
	}

	if err := s.store.InvalidateToken(ctx, session.RefreshID, remaining); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	if err := s.eventPub.PublishLogout(ctx, session.AccountID, session.RefreshID); err != nil {
		log.WithError(err).WithField("account_id", session.AccountID).Warn("failed to publish logout event")
	}
	return nil
}

// ValidateAccessToken returns the session behind a live access token
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	if s.now().After(session.AccessExpiry) {
		return nil, core.ErrTokenExpired
	}

	// Revoking the refresh token revokes its access tokens too
	if session.RefreshID != "" {
		invalidated, err := s.store.IsTokenInvalidated(ctx, session.RefreshID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token invalidation: %w", err)
		}
		if invalidated {
			return nil, core.ErrTokenInvalidated
		}
	}

	return session, nil
}

// Me returns the account and its bound wallets
func (s *AuthService) Me(ctx context.Context, accountID string) (*Profile, error) {
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	wallets, err := s.accounts.ListBindings(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return &Profile{Account: account, Wallets: wallets}, nil
}

func (s *AuthService) issue(accountID string) (*TokenPair, error) {
	now := s.now()
	session := &core.Session{
		ID:            uuid.New().String(),
		AccountID:     accountID,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}
	refreshToken, err := s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExpiry: session.AccessExpiry,
	}, nil
}
