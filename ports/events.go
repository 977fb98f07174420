package ports

import (
	"context"

	"github.com/layer-3/sentinel/core"
)

// EventPublisher publishes custody events to other services
type EventPublisher interface {
	PublishAccountProvisioned(ctx context.Context, account *core.CustodialAccount) error
	PublishTransactionSigned(ctx context.Context, identity, accountID string, programs []string) error
	PublishTransactionRejected(ctx context.Context, identity, accountID string, reason error) error
}
