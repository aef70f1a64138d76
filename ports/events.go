package ports

import (
	"context"

	"github.com/layer-3/walletgate/core"
)

// EventPublisher publishes events to notify other instances and services
type EventPublisher interface {
	PublishAccountCreated(ctx context.Context, accountID string, wallet core.Wallet) error
	PublishWalletLinked(ctx context.Context, accountID string, wallet core.Wallet) error
	PublishLogout(ctx context.Context, accountID string, tokenID string) error
}
