// Package identity verifies signatures made by wallet keys.
package identity

import (
	"crypto/ed25519"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/layer-3/sentinel/core"
	"github.com/mr-tron/base58"
)

// Ed25519Verifier checks base58 encoded ed25519 signatures against base58
// wallet addresses, the encoding used by Solana wallets for signMessage.
type Ed25519Verifier struct{}

// NewEd25519Verifier creates a new verifier
func NewEd25519Verifier() *Ed25519Verifier {
	return &Ed25519Verifier{}
}

// ValidateIdentity reports whether identity decodes to a 32 byte public key
func (v *Ed25519Verifier) ValidateIdentity(identity string) error {
	if _, err := solana.PublicKeyFromBase58(identity); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidIdentity, err)
	}
	return nil
}

// Verify checks that signature is identity's signature over message
func (v *Ed25519Verifier) Verify(message []byte, signature, identity string) error {
	pubkey, err := solana.PublicKeyFromBase58(identity)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidIdentity, err)
	}

	sig, err := base58.Decode(signature)
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", core.ErrInvalidSignature)
	}
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("signature must be %d bytes: %w", ed25519.SignatureSize, core.ErrInvalidSignature)
	}

	if !ed25519.Verify(ed25519.PublicKey(pubkey[:]), message, sig) {
		return core.ErrInvalidSignature
	}

	return nil
}
