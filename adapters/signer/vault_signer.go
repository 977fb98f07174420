// Package signer holds custodial keys in HashiCorp Vault's transit engine.
package signer

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/hashicorp/vault/api"
	"github.com/layer-3/sentinel/core"
	"github.com/layer-3/sentinel/internal/solanatx"
)

var ErrNotSigner = errors.New("custodial key is not a required signer of the transaction")

// VaultConfig configures the transit backed signer
type VaultConfig struct {
	Address     string // Vault server address, e.g. https://vault.example.com:8200
	Token       string
	TransitPath string // Transit mount path, e.g. "transit"
	Timeout     time.Duration
}

// VaultSigner implements ports.CustodialSigner with one ed25519 transit key per
// custodial account. Private keys never leave Vault.
type VaultSigner struct {
	client *api.Client
	mount  string
	log    *slog.Logger
}

// NewVaultSigner creates a new Vault transit signer
func NewVaultSigner(cfg VaultConfig, log *slog.Logger) (*VaultSigner, error) {
	config := api.DefaultConfig()
	config.Address = cfg.Address
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	config.HttpClient = &http.Client{Timeout: timeout}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	mount := strings.Trim(cfg.TransitPath, "/")
	if mount == "" {
		mount = "transit"
	}

	return &VaultSigner{
		client: client,
		mount:  mount,
		log:    log,
	}, nil
}

func keyName(accountID, keyID string) string {
	return fmt.Sprintf("custody-%s-%s", accountID, keyID)
}

// CreateAccount creates a fresh ed25519 transit key and returns its Solana address
func (s *VaultSigner) CreateAccount(ctx context.Context, ownerLabel string) (*core.CustodialAccount, error) {
	accountID := uuid.NewString()
	keyID := uuid.NewString()
	name := keyName(accountID, keyID)

	_, err := s.client.Logical().WriteWithContext(ctx, fmt.Sprintf("%s/keys/%s", s.mount, name), map[string]interface{}{
		"type":       "ed25519",
		"exportable": false,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create transit key: %v", core.ErrSignerFailed, err)
	}

	pub, err := s.publicKey(ctx, name)
	if err != nil {
		return nil, err
	}

	s.log.Info("Created custodial key",
		slog.String("account_id", accountID),
		slog.String("owner", ownerLabel))

	return &core.CustodialAccount{
		ID:        accountID,
		KeyID:     keyID,
		Address:   solana.PublicKeyFromBytes(pub).String(),
		CreatedAt: time.Now(),
	}, nil
}

// Sign signs the transaction message with the account's key and returns the
// serialized transaction with the signature in the key's slot.
func (s *VaultSigner) Sign(ctx context.Context, accountID, keyID string, rawTx []byte) ([]byte, error) {
	name := keyName(accountID, keyID)

	tx, err := solanatx.Decode(rawTx)
	if err != nil {
		return nil, err
	}

	pub, err := s.publicKey(ctx, name)
	if err != nil {
		return nil, err
	}

	idx := solanatx.SignerIndex(tx, solana.PublicKeyFromBytes(pub))
	if idx < 0 {
		return nil, ErrNotSigner
	}

	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize message: %w", err)
	}

	secret, err := s.client.Logical().WriteWithContext(ctx, fmt.Sprintf("%s/sign/%s", s.mount, name), map[string]interface{}{
		"input": base64.StdEncoding.EncodeToString(message),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: transit sign: %v", core.ErrSignerFailed, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: empty transit sign response", core.ErrSignerFailed)
	}

	sig, err := parseTransitSignature(secret.Data["signature"])
	if err != nil {
		return nil, err
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), message, sig) {
		return nil, fmt.Errorf("%w: transit returned a signature that does not verify", core.ErrSignerFailed)
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) != required {
		signatures := make([]solana.Signature, required)
		copy(signatures, tx.Signatures)
		tx.Signatures = signatures
	}
	copy(tx.Signatures[idx][:], sig)

	signed, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize signed transaction: %w", err)
	}

	return signed, nil
}

// Ping checks that Vault is initialized and unsealed
func (s *VaultSigner) Ping(ctx context.Context) error {
	health, err := s.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrSignerFailed, err)
	}
	if !health.Initialized || health.Sealed {
		return fmt.Errorf("%w: vault initialized=%t sealed=%t", core.ErrSignerFailed, health.Initialized, health.Sealed)
	}
	return nil
}

// publicKey reads the latest version of a transit key's public half
func (s *VaultSigner) publicKey(ctx context.Context, name string) (ed25519.PublicKey, error) {
	secret, err := s.client.Logical().ReadWithContext(ctx, fmt.Sprintf("%s/keys/%s", s.mount, name))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read transit key: %v", core.ErrSignerFailed, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: transit key not found", core.ErrSignerFailed)
	}

	keys, ok := secret.Data["keys"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: invalid transit key format", core.ErrSignerFailed)
	}
	version := fmt.Sprint(secret.Data["latest_version"])
	entry, ok := keys[version].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: transit key version %s missing", core.ErrSignerFailed, version)
	}
	encoded, ok := entry["public_key"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: transit key has no public key", core.ErrSignerFailed)
	}

	pub, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: invalid transit public key", core.ErrSignerFailed)
	}

	return ed25519.PublicKey(pub), nil
}

// parseTransitSignature decodes "vault:v<N>:<base64>"
func parseTransitSignature(raw interface{}) ([]byte, error) {
	value, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing transit signature", core.ErrSignerFailed)
	}

	parts := strings.Split(value, ":")
	if len(parts) != 3 || parts[0] != "vault" {
		return nil, fmt.Errorf("%w: unexpected transit signature format", core.ErrSignerFailed)
	}

	sig, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil || len(sig) != ed25519.SignatureSize {
		return nil, fmt.Errorf("%w: invalid transit signature", core.ErrSignerFailed)
	}

	return sig, nil
}
