package ports

import (
	"context"

	"github.com/layer-3/sentinel/core"
)

// NonceStore holds at most one outstanding challenge per identity
type NonceStore interface {
	// Issue creates a challenge for identity, replacing any previous one
	Issue(ctx context.Context, identity string) (*core.Challenge, error)
	// Peek returns the live challenge for identity without consuming it
	Peek(ctx context.Context, identity string) (*core.Challenge, error)
	// VerifyAndConsume deletes the challenge if it matches nonce and has not expired
	VerifyAndConsume(ctx context.Context, identity, nonce string) error
}

// OwnershipRegistry binds identities to the custodial account they may operate
type OwnershipRegistry interface {
	Bind(ctx context.Context, account *core.CustodialAccount) error
	Lookup(ctx context.Context, identity string) (*core.CustodialAccount, error)
	IsOwner(ctx context.Context, identity, accountID string) (bool, error)
}
