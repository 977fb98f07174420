package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/layer-3/sentinel/core"
	"github.com/layer-3/sentinel/internal/metrics"
	"github.com/layer-3/sentinel/ports"
)

// DefaultSignTimeout bounds a single call to the custodial signer
const DefaultSignTimeout = 30 * time.Second

// CustodyService provisions custodial accounts and signs transactions on
// behalf of their owners once the gateway has cleared them.
type CustodyService struct {
	registry ports.OwnershipRegistry
	signer   ports.CustodialSigner
	gateway  *TransactionGateway
	events   ports.EventPublisher
	log      *slog.Logger
	metrics  *metrics.Metrics

	signTimeout time.Duration
	provision   singleflight.Group
}

// NewCustodyService creates a new custody service. events may be nil.
func NewCustodyService(
	registry ports.OwnershipRegistry,
	signer ports.CustodialSigner,
	gateway *TransactionGateway,
	events ports.EventPublisher,
	log *slog.Logger,
	m *metrics.Metrics,
	signTimeout time.Duration,
) *CustodyService {
	if signTimeout <= 0 {
		signTimeout = DefaultSignTimeout
	}
	return &CustodyService{
		registry:    registry,
		signer:      signer,
		gateway:     gateway,
		events:      events,
		log:         log,
		metrics:     m,
		signTimeout: signTimeout,
	}
}

// CreateAccount provisions a custodial account for identity and binds it.
// An identity that already owns an account gets that account back.
func (s *CustodyService) CreateAccount(ctx context.Context, session *core.Session, identity string) (*core.CustodialAccount, error) {
	if session == nil {
		return nil, core.ErrUnauthorized
	}
	if identity == "" {
		return nil, core.ErrInvalidRequest
	}
	if identity != session.Identity {
		return nil, core.ErrForbidden
	}

	v, err, _ := s.provision.Do(identity, func() (interface{}, error) {
		// Shared by every collapsed caller; not tied to the first caller's cancellation.
		provisionCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.signTimeout)
		defer cancel()
		return s.provisionAccount(provisionCtx, identity)
	})
	if err != nil {
		return nil, err
	}

	return v.(*core.CustodialAccount), nil
}

func (s *CustodyService) provisionAccount(ctx context.Context, identity string) (*core.CustodialAccount, error) {
	existing, err := s.registry.Lookup(ctx, identity)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, core.ErrAccountNotFound):
		return nil, err
	}

	account, err := s.signer.CreateAccount(ctx, identity)
	if err != nil {
		s.log.Error("Failed to create custodial account", slog.String("identity", identity), "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrSignerFailed, err)
	}
	account.Owner = identity

	if err := s.registry.Bind(ctx, account); err != nil {
		s.log.Error("Custodial key created but not bound, key is orphaned",
			slog.String("identity", identity),
			slog.String("account_id", account.ID),
			slog.String("key_id", account.KeyID),
			slog.String("address", account.Address),
			"err", err)
		return nil, fmt.Errorf("failed to bind custodial account: %w", err)
	}

	s.log.Info("Custodial account provisioned",
		slog.String("identity", identity),
		slog.String("account_id", account.ID),
		slog.String("address", account.Address))

	if s.events != nil {
		if err := s.events.PublishAccountProvisioned(ctx, account); err != nil {
			s.log.Warn("Failed to publish account event", slog.String("account_id", account.ID), "err", err)
		}
	}

	return account, nil
}

// SignTransaction checks ownership, runs the transaction through the gateway
// and, only if every check passes, asks the custodial signer for a signature.
func (s *CustodyService) SignTransaction(ctx context.Context, session *core.Session, accountID, keyID string, rawTx []byte) ([]byte, error) {
	if session == nil {
		return nil, core.ErrUnauthorized
	}
	if accountID == "" || keyID == "" || len(rawTx) == 0 {
		return nil, core.ErrInvalidRequest
	}

	account, err := s.ownedAccount(ctx, session.Identity, accountID, keyID)
	if err != nil {
		s.metrics.SignOutcome("forbidden")
		return nil, err
	}

	result, err := s.gateway.Inspect(ctx, rawTx)
	if err != nil {
		var secErr *core.SecurityError
		if !errors.As(err, &secErr) {
			s.metrics.SignOutcome("error")
			return nil, err
		}
		s.metrics.SignOutcome("blocked")
		s.publishRejected(ctx, session.Identity, accountID, err)
		return nil, err
	}

	if !slices.Contains(result.Signers, account.Address) {
		err := &core.SecurityError{Reason: core.ErrSignerNotRequired, Detail: account.Address}
		s.metrics.SignOutcome("blocked")
		s.publishRejected(ctx, session.Identity, accountID, err)
		return nil, err
	}

	signCtx, cancel := context.WithTimeout(ctx, s.signTimeout)
	defer cancel()

	signed, err := s.signer.Sign(signCtx, accountID, keyID, rawTx)
	if err != nil {
		s.metrics.SignOutcome("error")
		s.log.Error("Custodial signer failed",
			slog.String("identity", session.Identity),
			slog.String("account_id", accountID), "err", err)
		if errors.Is(err, core.ErrSignerFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", core.ErrSignerFailed, err)
	}

	s.metrics.SignOutcome("signed")
	s.log.Info("Transaction signed",
		slog.String("identity", session.Identity),
		slog.String("account_id", accountID),
		slog.Any("programs", result.Programs))

	if s.events != nil {
		if err := s.events.PublishTransactionSigned(ctx, session.Identity, accountID, result.Programs); err != nil {
			s.log.Warn("Failed to publish signing event", slog.String("account_id", accountID), "err", err)
		}
	}

	return signed, nil
}

// Ping reports whether the custodial signer is reachable
func (s *CustodyService) Ping(ctx context.Context) error {
	return s.signer.Ping(ctx)
}

// PingLedger reports whether the ledger used for simulation is reachable
func (s *CustodyService) PingLedger(ctx context.Context) error {
	return s.gateway.Ping(ctx)
}

func (s *CustodyService) ownedAccount(ctx context.Context, identity, accountID, keyID string) (*core.CustodialAccount, error) {
	owner, err := s.registry.IsOwner(ctx, identity, accountID)
	if err != nil {
		return nil, err
	}
	if !owner {
		s.log.Warn("Signing request for foreign account",
			slog.String("identity", identity),
			slog.String("account_id", accountID))
		return nil, core.ErrForbidden
	}

	account, err := s.registry.Lookup(ctx, identity)
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			return nil, core.ErrForbidden
		}
		return nil, err
	}
	if account.KeyID != keyID {
		return nil, core.ErrForbidden
	}

	return account, nil
}

func (s *CustodyService) publishRejected(ctx context.Context, identity, accountID string, reason error) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionRejected(ctx, identity, accountID, reason); err != nil {
		s.log.Warn("Failed to publish rejection event", slog.String("account_id", accountID), "err", err)
	}
}
