package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
	log "github.com/sirupsen/logrus"
)

// WalletProof is what a client submits after signing a challenge
type WalletProof struct {
	WalletType    string
	WalletAddress string
	Signature     string
	Message       string
	Nonce         string
}

// AuthenticateResult is returned by VerifyAndAuthenticate
type AuthenticateResult struct {
	Session *core.SessionArtifact
	Created bool
}

// LinkResult is returned by VerifyAndLink
type LinkResult struct {
	Wallet core.Wallet
	Linked bool // false when the wallet was already bound to the caller
}

// WalletAuthService drives verify+authenticate and verify+link
type WalletAuthService struct {
	nonces   *NonceService
	verifier ports.SignatureVerifier
	resolver *Resolver
	bridge   *SessionBridge
	eventPub ports.EventPublisher
}

// NewWalletAuthService wires the wallet authentication flow
func NewWalletAuthService(
	nonces *NonceService,
	verifier ports.SignatureVerifier,
	resolver *Resolver,
	bridge *SessionBridge,
	eventPub ports.EventPublisher,
) *WalletAuthService {
	return &WalletAuthService{
		nonces:   nonces,
		verifier: verifier,
		resolver: resolver,
		bridge:   bridge,
		eventPub: eventPub,
	}
}

// IssueChallenge creates a nonce for the wallet type and address
func (s *WalletAuthService) IssueChallenge(ctx context.Context, walletType, address string) (*core.WalletChallenge, error) {
	chain, err := core.ParseChainFamily(walletType)
	if err != nil {
		return nil, err
	}
	return s.nonces.Issue(ctx, chain, address)
}

// VerifyAndAuthenticate proves wallet ownership and returns a login artifact
// for the bound account, signing up a wallet-native account if needed.
func (s *WalletAuthService) VerifyAndAuthenticate(ctx context.Context, proof WalletProof) (*AuthenticateResult, error) {
	wallet, err := s.verify(ctx, proof)
	if err != nil {
		return nil, err
	}

	res, err := s.resolver.Authenticate(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if res.AccountCreated {
		if err := s.eventPub.PublishAccountCreated(ctx, res.AccountID, wallet); err != nil {
			walletLog(wallet).WithError(err).Warn("failed to publish account_created event")
		}
	}

	session, err := s.bridge.IssueSession(ctx, res.AccountID, wallet)
	if err != nil {
		return nil, err
	}

	walletLog(wallet).WithFields(log.Fields{
		"account_id": res.AccountID,
		"created":    res.AccountCreated,
	}).Info("wallet authenticated")

	return &AuthenticateResult{Session: session, Created: res.AccountCreated}, nil
}

// VerifyAndLink proves wallet ownership and binds it to accountID
func (s *WalletAuthService) VerifyAndLink(ctx context.Context, accountID string, proof WalletProof) (*LinkResult, error) {
	if accountID == "" {
		return nil, core.ErrUnauthenticated
	}

	wallet, err := s.verify(ctx, proof)
	if err != nil {
		return nil, err
	}

	res, err := s.resolver.Link(ctx, wallet, accountID)
	if err != nil {
		return nil, err
	}
	if res.BindingCreated {
		if err := s.eventPub.PublishWalletLinked(ctx, accountID, wallet); err != nil {
			walletLog(wallet).WithError(err).Warn("failed to publish wallet_linked event")
		}
	}

	walletLog(wallet).WithFields(log.Fields{
		"account_id": accountID,
		"linked":     res.BindingCreated,
	}).Info("wallet linked")

	return &LinkResult{Wallet: wallet, Linked: res.BindingCreated}, nil
}

// verify checks the proof against the issued challenge and consumes the nonce.
// The signature is checked before consuming so a bad signature does not burn it.
func (s *WalletAuthService) verify(ctx context.Context, proof WalletProof) (core.Wallet, error) {
	chain, err := core.ParseChainFamily(proof.WalletType)
	if err != nil {
		return core.Wallet{}, err
	}
	wallet, err := core.NewWallet(chain, proof.WalletAddress)
	if err != nil {
		return core.Wallet{}, err
	}
	if strings.TrimSpace(proof.Nonce) == "" || proof.Message == "" || strings.TrimSpace(proof.Signature) == "" {
		return core.Wallet{}, fmt.Errorf("%w: nonce, message and signature are required", core.ErrValidation)
	}

	challenge, err := s.nonces.Lookup(ctx, wallet, proof.Nonce)
	if err != nil {
		return core.Wallet{}, err
	}
	if proof.Message != challenge.Message {
		return core.Wallet{}, fmt.Errorf("%w: %w", core.ErrSignatureInvalid, core.ErrChallengeMismatch)
	}

	sig, err := chain.DecodeSignature(proof.Signature)
	if err != nil {
		return core.Wallet{}, err
	}
	result := s.verifier.Verify(chain, sig, []byte(challenge.Message), wallet.Address)
	if !result.Valid {
		walletLog(wallet).WithError(result.Err).Debug("signature rejected")
		return core.Wallet{}, fmt.Errorf("%w: %w", core.ErrSignatureInvalid, result.Err)
	}

	if _, err := s.nonces.Consume(ctx, wallet, proof.Nonce); err != nil {
		return core.Wallet{}, err
	}
	return wallet, nil
}

func walletLog(wallet core.Wallet) *log.Entry {
	return log.WithFields(log.Fields{
		"wallet_type":    wallet.Chain.String(),
		"wallet_address": wallet.Address,
	})
}
