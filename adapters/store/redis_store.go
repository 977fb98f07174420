package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/sentinel/core"
	"github.com/redis/go-redis/v9"
)

// expiredGrace keeps expired challenges in Redis a little longer than their TTL
// so that late verifications report ErrChallengeExpired rather than not found.
const expiredGrace = time.Minute

// RedisNonceStore is a Redis implementation of NonceStore shared by all instances
type RedisNonceStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisNonceStore creates a new Redis nonce store
func NewRedisNonceStore(client *redis.Client, ttl time.Duration) *RedisNonceStore {
	if ttl <= 0 {
		ttl = DefaultNonceTTL
	}
	return &RedisNonceStore{
		client: client,
		prefix: "sentinel:nonce:",
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a challenge for identity, overwriting any outstanding one
func (s *RedisNonceStore) Issue(ctx context.Context, identity string) (*core.Challenge, error) {
	challenge, err := newChallenge(identity, s.now(), s.ttl)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(challenge)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal challenge: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+identity, payload, s.ttl+expiredGrace).Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to store challenge: %v", core.ErrStoreFailed, err)
	}

	return challenge, nil
}

// Peek returns the live challenge for identity. An expired challenge is deleted.
func (s *RedisNonceStore) Peek(ctx context.Context, identity string) (*core.Challenge, error) {
	key := s.prefix + identity

	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("%w: failed to read challenge: %v", core.ErrStoreFailed, err)
	}

	challenge, err := decodeChallenge(payload)
	if err != nil {
		return nil, err
	}

	if challenge.Expired(s.now()) {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return nil, fmt.Errorf("%w: failed to delete challenge: %v", core.ErrStoreFailed, err)
		}
		return nil, core.ErrChallengeExpired
	}

	return challenge, nil
}

// VerifyAndConsume atomically removes the challenge for identity and checks it
func (s *RedisNonceStore) VerifyAndConsume(ctx context.Context, identity, nonce string) error {
	payload, err := s.client.GetDel(ctx, s.prefix+identity).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.ErrChallengeNotFound
		}
		return fmt.Errorf("%w: failed to consume challenge: %v", core.ErrStoreFailed, err)
	}

	challenge, err := decodeChallenge(payload)
	if err != nil {
		return err
	}

	return checkChallenge(challenge, nonce, s.now())
}

func decodeChallenge(payload []byte) (*core.Challenge, error) {
	var challenge core.Challenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return nil, fmt.Errorf("%w: corrupt challenge: %v", core.ErrStoreFailed, err)
	}
	return &challenge, nil
}

// RedisOwnershipRegistry is a Redis implementation of OwnershipRegistry
type RedisOwnershipRegistry struct {
	client *redis.Client
	prefix string
}

// NewRedisOwnershipRegistry creates a new Redis ownership registry
func NewRedisOwnershipRegistry(client *redis.Client) *RedisOwnershipRegistry {
	return &RedisOwnershipRegistry{
		client: client,
		prefix: "sentinel:owner:",
	}
}

// Bind records account as owned by account.Owner. Bindings never expire.
func (r *RedisOwnershipRegistry) Bind(ctx context.Context, account *core.CustodialAccount) error {
	if account == nil || account.Owner == "" || account.ID == "" {
		return core.ErrInvalidRequest
	}

	payload, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	if err := r.client.Set(ctx, r.prefix+account.Owner, payload, 0).Err(); err != nil {
		return fmt.Errorf("%w: failed to bind account: %v", core.ErrStoreFailed, err)
	}

	return nil
}

// Lookup returns the account bound to identity
func (r *RedisOwnershipRegistry) Lookup(ctx context.Context, identity string) (*core.CustodialAccount, error) {
	payload, err := r.client.Get(ctx, r.prefix+identity).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: failed to read binding: %v", core.ErrStoreFailed, err)
	}

	var account core.CustodialAccount
	if err := json.Unmarshal(payload, &account); err != nil {
		return nil, fmt.Errorf("%w: corrupt binding: %v", core.ErrStoreFailed, err)
	}

	return &account, nil
}

// IsOwner reports whether identity is bound to exactly accountID
func (r *RedisOwnershipRegistry) IsOwner(ctx context.Context, identity, accountID string) (bool, error) {
	account, err := r.Lookup(ctx, identity)
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}
	return accountID != "" && account.ID == accountID, nil
}
