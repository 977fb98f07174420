package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/layer-3/sentinel/core"
)

const (
	// DefaultNonceTTL is how long an issued challenge stays valid
	DefaultNonceTTL = 5 * time.Minute

	nonceBytes = 16
)

func newChallenge(identity string, now time.Time, ttl time.Duration) (*core.Challenge, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return &core.Challenge{
		Identity:  identity,
		Nonce:     hex.EncodeToString(buf),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// checkChallenge applies the consumption rules to a challenge that was found
func checkChallenge(c *core.Challenge, nonce string, now time.Time) error {
	if c.Expired(now) {
		return core.ErrChallengeExpired
	}
	if c.Nonce != nonce {
		return core.ErrChallengeMismatch
	}
	return nil
}
