// Package sentinel is a Go client for the wallet authentication and custodial
// signing gateway.
package sentinel

import (
	"context"
	"crypto/ed25519"
	"time"
)

// Client represents the public interface for interacting with the gateway
type Client interface {
	// Challenge requests a nonce for wallet
	Challenge(ctx context.Context, wallet string) (*Challenge, error)

	// Login exchanges a signature over the challenge message for a session.
	// The session token is used by subsequent calls.
	Login(ctx context.Context, wallet, signature string) (*Session, error)

	// Authenticate runs Challenge and Login, signing with key
	Authenticate(ctx context.Context, key ed25519.PrivateKey) (*Session, error)

	// CreateAccount provisions, or returns, the custodial account of identity
	CreateAccount(ctx context.Context, identity string) (*Account, error)

	// Sign submits a wire-format transaction for inspection and custodial signing
	Sign(ctx context.Context, accountID, keyID string, rawTx []byte) ([]byte, error)

	// Health returns nil when the gateway, its signer and its ledger are up
	Health(ctx context.Context) error
}

// Challenge is an outstanding authentication challenge
type Challenge struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Session is an authenticated session
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Account is a custodial account
type Account struct {
	AccountID string `json:"accountId"`
	KeyID     string `json:"keyId"`
	Address   string `json:"address"`
}
