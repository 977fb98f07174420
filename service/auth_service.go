package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/sentinel/core"
	"github.com/layer-3/sentinel/internal/metrics"
	"github.com/layer-3/sentinel/ports"
)

// DefaultSessionTTL is the lifetime of a session token
const DefaultSessionTTL = 24 * time.Hour

// AuthService handles challenge/response authentication and session tokens
type AuthService struct {
	nonces    ports.NonceStore
	tokenizer ports.Tokenizer
	verifier  ports.SignatureVerifier
	log       *slog.Logger
	metrics   *metrics.Metrics

	sessionTTL time.Duration
	now        func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	nonces ports.NonceStore,
	tokenizer ports.Tokenizer,
	verifier ports.SignatureVerifier,
	log *slog.Logger,
	m *metrics.Metrics,
	sessionTTL time.Duration,
) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &AuthService{
		nonces:     nonces,
		tokenizer:  tokenizer,
		verifier:   verifier,
		log:        log,
		metrics:    m,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// CreateChallenge issues a nonce for identity, replacing any outstanding one
func (s *AuthService) CreateChallenge(ctx context.Context, identity string) (*core.Challenge, error) {
	if err := s.verifier.ValidateIdentity(identity); err != nil {
		return nil, err
	}

	challenge, err := s.nonces.Issue(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to issue challenge: %w", err)
	}

	return challenge, nil
}

// Login verifies signature over the identity's outstanding challenge message
// and returns a session token. The nonce is consumed only after the signature
// checks out. Every authentication failure wraps ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, identity, signature string) (string, *core.Session, error) {
	if identity == "" || signature == "" {
		return "", nil, core.ErrInvalidRequest
	}

	challenge, err := s.nonces.Peek(ctx, identity)
	if err != nil {
		return "", nil, s.authFailure(identity, err)
	}

	if err := s.verifier.Verify([]byte(challenge.Message()), signature, identity); err != nil {
		return "", nil, s.authFailure(identity, err)
	}

	if err := s.nonces.VerifyAndConsume(ctx, identity, challenge.Nonce); err != nil {
		return "", nil, s.authFailure(identity, err)
	}

	now := s.now()
	session := &core.Session{
		ID:        uuid.New().String(),
		Identity:  identity,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create session token: %w", err)
	}

	s.metrics.AuthOutcome("success")
	s.log.Info("Wallet authenticated", slog.String("identity", identity))

	return token, session, nil
}

// ValidateAccessToken parses a session token. Failures wrap ErrUnauthorized.
func (s *AuthService) ValidateAccessToken(ctx context.Context, token string) (*core.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrUnauthorized, core.ErrInvalidToken)
	}

	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUnauthorized, err)
	}

	return session, nil
}

func (s *AuthService) authFailure(identity string, err error) error {
	if errors.Is(err, core.ErrStoreFailed) {
		s.metrics.AuthOutcome("error")
		s.log.Error("Nonce store failure", slog.String("identity", identity), "err", err)
		return err
	}

	s.metrics.AuthOutcome("rejected")
	s.log.Warn("Authentication rejected", slog.String("identity", identity), "err", err)
	return fmt.Errorf("%w: %w", core.ErrUnauthorized, err)
}
