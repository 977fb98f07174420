// Package mocks provides testify mocks of the gateway's outbound ports.
package mocks

import (
	"context"

	"github.com/layer-3/sentinel/core"
	"github.com/stretchr/testify/mock"
)

// MockLedger mocks the Ledger interface
type MockLedger struct {
	mock.Mock
}

// LatestReferenceHash mocks the LatestReferenceHash method
func (m *MockLedger) LatestReferenceHash(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// Simulate mocks the Simulate method
func (m *MockLedger) Simulate(ctx context.Context, rawTx []byte) (*core.SimulationOutcome, error) {
	args := m.Called(ctx, rawTx)
	outcome, _ := args.Get(0).(*core.SimulationOutcome)
	return outcome, args.Error(1)
}

// MockSigner mocks the CustodialSigner interface
type MockSigner struct {
	mock.Mock
}

// CreateAccount mocks the CreateAccount method
func (m *MockSigner) CreateAccount(ctx context.Context, ownerLabel string) (*core.CustodialAccount, error) {
	args := m.Called(ctx, ownerLabel)
	account, _ := args.Get(0).(*core.CustodialAccount)
	return account, args.Error(1)
}

// Sign mocks the Sign method
func (m *MockSigner) Sign(ctx context.Context, accountID, keyID string, rawTx []byte) ([]byte, error) {
	args := m.Called(ctx, accountID, keyID, rawTx)
	signed, _ := args.Get(0).([]byte)
	return signed, args.Error(1)
}

// Ping mocks the Ping method
func (m *MockSigner) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockPublisher mocks the EventPublisher interface
type MockPublisher struct {
	mock.Mock
}

// PublishAccountProvisioned mocks the PublishAccountProvisioned method
func (m *MockPublisher) PublishAccountProvisioned(ctx context.Context, account *core.CustodialAccount) error {
	return m.Called(ctx, account).Error(0)
}

// PublishTransactionSigned mocks the PublishTransactionSigned method
func (m *MockPublisher) PublishTransactionSigned(ctx context.Context, identity, accountID string, programs []string) error {
	return m.Called(ctx, identity, accountID, programs).Error(0)
}

// PublishTransactionRejected mocks the PublishTransactionRejected method
func (m *MockPublisher) PublishTransactionRejected(ctx context.Context, identity, accountID string, reason error) error {
	return m.Called(ctx, identity, accountID, reason).Error(0)
}
