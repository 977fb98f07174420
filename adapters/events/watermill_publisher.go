package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/sentinel/core"
)

const (
	TopicAccountProvisioned  = "custody.account_provisioned"
	TopicTransactionSigned   = "custody.transaction_signed"
	TopicTransactionRejected = "custody.transaction_rejected"
)

// AccountProvisionedEvent is published once per new custodial account
type AccountProvisionedEvent struct {
	Identity  string    `json:"identity"`
	AccountID string    `json:"account_id"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// TransactionSignedEvent is published after the custodial signer returned a signature
type TransactionSignedEvent struct {
	Identity  string   `json:"identity"`
	AccountID string   `json:"account_id"`
	Programs  []string `json:"programs"`
}

// TransactionRejectedEvent is published when the security gateway blocks a transaction
type TransactionRejectedEvent struct {
	Identity  string `json:"identity"`
	AccountID string `json:"account_id"`
	Reason    string `json:"reason"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishAccountProvisioned publishes an account provisioned event
func (p *WatermillPublisher) PublishAccountProvisioned(ctx context.Context, account *core.CustodialAccount) error {
	return p.publish(ctx, TopicAccountProvisioned, AccountProvisionedEvent{
		Identity:  account.Owner,
		AccountID: account.ID,
		Address:   account.Address,
		CreatedAt: account.CreatedAt,
	})
}

// PublishTransactionSigned publishes a transaction signed event
func (p *WatermillPublisher) PublishTransactionSigned(ctx context.Context, identity, accountID string, programs []string) error {
	return p.publish(ctx, TopicTransactionSigned, TransactionSignedEvent{
		Identity:  identity,
		AccountID: accountID,
		Programs:  programs,
	})
}

// PublishTransactionRejected publishes a transaction rejected event
func (p *WatermillPublisher) PublishTransactionRejected(ctx context.Context, identity, accountID string, reason error) error {
	return p.publish(ctx, TopicTransactionRejected, TransactionRejectedEvent{
		Identity:  identity,
		AccountID: accountID,
		Reason:    reason.Error(),
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
