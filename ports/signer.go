package ports

import (
	"context"

	"github.com/layer-3/sentinel/core"
)

// CustodialSigner is the remote key-management provider holding custodial keys
type CustodialSigner interface {
	CreateAccount(ctx context.Context, ownerLabel string) (*core.CustodialAccount, error)
	Sign(ctx context.Context, accountID, keyID string, rawTx []byte) ([]byte, error)
	Ping(ctx context.Context) error
}

// SignatureVerifier checks signatures made with an identity's own key
type SignatureVerifier interface {
	// ValidateIdentity reports whether identity is a well-formed public key
	ValidateIdentity(identity string) error
	Verify(message []byte, signature, identity string) error
}
