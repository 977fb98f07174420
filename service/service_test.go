package service

import (
	"io"
	"log/slog"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/sentinel/adapters/identity"
	"github.com/layer-3/sentinel/adapters/store"
	"github.com/layer-3/sentinel/adapters/tokenizer"
	"github.com/layer-3/sentinel/core"
	"github.com/layer-3/sentinel/internal/mocks"
	"github.com/layer-3/sentinel/internal/solanatx/solanatxtest"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var (
	platformKey = solana.MustPublicKeyFromBase58(PlatformProgram)
	systemKey   = solana.MustPublicKeyFromBase58(SystemProgram)
	rogueKey    = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	tok, err := tokenizer.NewHMACTokenizer(testSecret)
	require.NoError(t, err)
	return NewAuthService(store.NewMemoryNonceStore(0), tok, identity.NewEd25519Verifier(), discardLogger(), nil, 0)
}

type custodyFixture struct {
	registry *store.MemoryOwnershipRegistry
	ledger   *mocks.MockLedger
	signer   *mocks.MockSigner
	events   *mocks.MockPublisher
	custody  *CustodyService
}

func newCustodyFixture(t *testing.T, cfg GatewayConfig) *custodyFixture {
	t.Helper()
	f := &custodyFixture{
		registry: store.NewMemoryOwnershipRegistry(),
		ledger:   &mocks.MockLedger{},
		signer:   &mocks.MockSigner{},
		events:   &mocks.MockPublisher{},
	}
	gateway := NewTransactionGateway(f.ledger, cfg, discardLogger(), nil)
	f.custody = NewCustodyService(f.registry, f.signer, gateway, f.events, discardLogger(), nil, 0)
	return f
}

// bindAccount registers a custodial account whose key is custodialKey
func (f *custodyFixture) bindAccount(t *testing.T, owner string, custodialKey solana.PublicKey) *core.CustodialAccount {
	t.Helper()
	account := &core.CustodialAccount{
		ID:      "acct-" + owner[:6],
		KeyID:   "key-" + owner[:6],
		Address: custodialKey.String(),
		Owner:   owner,
	}
	require.NoError(t, f.registry.Bind(t.Context(), account))
	return account
}

func rawTx(t *testing.T, payer solana.PublicKey, programs ...solana.PublicKey) []byte {
	t.Helper()
	return solanatxtest.Raw(t, solanatxtest.Build(t, payer, programs...))
}
