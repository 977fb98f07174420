package store

import (
	"context"
	"time"

	"github.com/layer-3/sentinel/core"
	"github.com/layer-3/sentinel/internal/shardmap"
)

// MemoryNonceStore is an in-memory NonceStore. Entries for different
// identities live in independently locked shards.
type MemoryNonceStore struct {
	challenges *shardmap.Map[core.Challenge]
	ttl        time.Duration
	now        func() time.Time
}

// NewMemoryNonceStore creates a new in-memory nonce store
func NewMemoryNonceStore(ttl time.Duration) *MemoryNonceStore {
	if ttl <= 0 {
		ttl = DefaultNonceTTL
	}
	return &MemoryNonceStore{
		challenges: shardmap.New[core.Challenge](),
		ttl:        ttl,
		now:        time.Now,
	}
}

// Issue creates a challenge for identity, overwriting any outstanding one
func (s *MemoryNonceStore) Issue(ctx context.Context, identity string) (*core.Challenge, error) {
	challenge, err := newChallenge(identity, s.now(), s.ttl)
	if err != nil {
		return nil, err
	}

	s.challenges.Set(identity, *challenge)
	return challenge, nil
}

// Peek returns the live challenge for identity. An expired challenge is deleted.
func (s *MemoryNonceStore) Peek(ctx context.Context, identity string) (*core.Challenge, error) {
	var (
		found core.Challenge
		err   error
	)

	s.challenges.Compute(identity, func(c core.Challenge, exists bool) (core.Challenge, bool) {
		switch {
		case !exists:
			err = core.ErrChallengeNotFound
			return c, false
		case c.Expired(s.now()):
			err = core.ErrChallengeExpired
			return c, false
		}
		found = c
		return c, true
	})
	if err != nil {
		return nil, err
	}

	return &found, nil
}

// VerifyAndConsume deletes the challenge for identity once found, whatever the outcome
func (s *MemoryNonceStore) VerifyAndConsume(ctx context.Context, identity, nonce string) error {
	var err error

	s.challenges.Compute(identity, func(c core.Challenge, exists bool) (core.Challenge, bool) {
		if !exists {
			err = core.ErrChallengeNotFound
			return c, false
		}
		err = checkChallenge(&c, nonce, s.now())
		return c, false
	})

	return err
}

// Prune drops expired challenges and returns how many were removed
func (s *MemoryNonceStore) Prune() int {
	now := s.now()
	return s.challenges.DeleteIf(func(_ string, c core.Challenge) bool {
		return c.Expired(now)
	})
}

// MemoryOwnershipRegistry is an in-memory OwnershipRegistry
type MemoryOwnershipRegistry struct {
	accounts *shardmap.Map[core.CustodialAccount]
}

// NewMemoryOwnershipRegistry creates a new in-memory ownership registry
func NewMemoryOwnershipRegistry() *MemoryOwnershipRegistry {
	return &MemoryOwnershipRegistry{
		accounts: shardmap.New[core.CustodialAccount](),
	}
}

// Bind records account as owned by account.Owner. A later bind for the same owner replaces it.
func (r *MemoryOwnershipRegistry) Bind(ctx context.Context, account *core.CustodialAccount) error {
	if account == nil || account.Owner == "" || account.ID == "" {
		return core.ErrInvalidRequest
	}
	r.accounts.Set(account.Owner, *account)
	return nil
}

// Lookup returns the account bound to identity
func (r *MemoryOwnershipRegistry) Lookup(ctx context.Context, identity string) (*core.CustodialAccount, error) {
	account, ok := r.accounts.Get(identity)
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	return &account, nil
}

// IsOwner reports whether identity is bound to exactly accountID
func (r *MemoryOwnershipRegistry) IsOwner(ctx context.Context, identity, accountID string) (bool, error) {
	account, ok := r.accounts.Get(identity)
	if !ok {
		return false, nil
	}
	return accountID != "" && account.ID == accountID, nil
}
