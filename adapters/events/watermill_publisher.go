package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
)

// Topics published by WatermillPublisher
const (
	TopicAccountCreated = "walletgate.account_created"
	TopicWalletLinked   = "walletgate.wallet_linked"
	TopicLogout         = "walletgate.logout"
)

// WalletEvent is emitted when a wallet creates an account or gets linked to one
type WalletEvent struct {
	AccountID  string `json:"account_id"`
	WalletType string `json:"wallet_type"`
	Address    string `json:"address"`
	OccurredAt int64  `json:"occurred_at"`
}

// LogoutEvent represents a logout event
type LogoutEvent struct {
	AccountID string `json:"account_id"`
	TokenID   string `json:"token_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	now       func() time.Time
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher, now: time.Now}
}

// PublishAccountCreated announces a wallet-native sign-up
func (p *WatermillPublisher) PublishAccountCreated(ctx context.Context, accountID string, wallet core.Wallet) error {
	return p.publishWallet(ctx, TopicAccountCreated, accountID, wallet)
}

// PublishWalletLinked announces a new binding on an existing account
func (p *WatermillPublisher) PublishWalletLinked(ctx context.Context, accountID string, wallet core.Wallet) error {
	return p.publishWallet(ctx, TopicWalletLinked, accountID, wallet)
}

// PublishLogout publishes a logout event keyed by the revoked token
func (p *WatermillPublisher) PublishLogout(ctx context.Context, accountID string, tokenID string) error {
	return p.publish(ctx, TopicLogout, tokenID, LogoutEvent{AccountID: accountID, TokenID: tokenID})
}

func (p *WatermillPublisher) publishWallet(ctx context.Context, topic, accountID string, wallet core.Wallet) error {
	return p.publish(ctx, topic, watermill.NewUUID(), WalletEvent{
		AccountID:  accountID,
		WalletType: wallet.Chain.String(),
		Address:    wallet.Address,
		OccurredAt: p.now().UnixMilli(),
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic, uuid string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishAccountCreated(context.Context, string, core.Wallet) error { return nil }
func (NopPublisher) PublishWalletLinked(context.Context, string, core.Wallet) error { return nil }
func (NopPublisher) PublishLogout(context.Context, string, string) error { return nil }
