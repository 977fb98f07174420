package core

import (
	"fmt"
	"time"
)

// ChallengeMessagePrefix is the fixed text the caller signs, followed by the nonce.
// Clients must reproduce the message byte for byte.
const ChallengeMessagePrefix = "Sign this message to authenticate: "

// ChallengeMessage returns the message a wallet signs for the given nonce
func ChallengeMessage(nonce string) string {
	return fmt.Sprintf("%s%s", ChallengeMessagePrefix, nonce)
}

// Challenge represents an outstanding authentication challenge
type Challenge struct {
	Identity  string    // Wallet address the challenge was issued to
	Nonce     string    // Random hex nonce to be signed
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
}

// Message returns the exact text to be signed for this challenge
func (c *Challenge) Message() string {
	return ChallengeMessage(c.Nonce)
}

// Expired reports whether the challenge is no longer usable at t
func (c *Challenge) Expired(t time.Time) bool {
	return !t.Before(c.ExpiresAt)
}

// Session represents an authenticated caller
type Session struct {
	ID        string    // Unique session identifier
	Identity  string    // Wallet address of the caller
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the session expires
}
