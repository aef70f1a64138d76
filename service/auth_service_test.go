package service

import (
	"context"
	"testing"
	"time"

	"github.com/layer-3/walletgate/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthServiceSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	evm := newEVMSigner(t)

	res, err := f.wallets.VerifyAndAuthenticate(ctx, f.prove(t, "evm", evm.address, evm))
	require.NoError(t, err)

	tokens, err := f.auth.Redeem(ctx, res.Session.LoginArtifact)
	require.NoError(t, err)

	_, err = f.auth.Redeem(ctx, res.Session.LoginArtifact)
	assert.ErrorIs(t, err, core.ErrTokenInvalidated, "login artifact is single use")

	profile, err := f.auth.Me(ctx, res.Session.AccountID)
	require.NoError(t, err)
	require.Len(t, profile.Wallets, 1)
	assert.Equal(t, res.Session.Wallet.Address, profile.Wallets[0].Address)

	rotated, err := f.auth.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)

	_, err = f.auth.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, core.ErrTokenInvalidated, "refresh token is rotated")

	_, err = f.auth.ValidateAccessToken(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenInvalidated, "access token dies with its refresh token")

	require.NoError(t, f.auth.Logout(ctx, rotated.RefreshToken))
	_, err = f.auth.ValidateAccessToken(ctx, rotated.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenInvalidated)
}

func TestAuthServiceRejectsExpiredAccessToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pair, err := f.auth.issue("acct-1")
	require.NoError(t, err)

	f.auth.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = f.auth.ValidateAccessToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}
