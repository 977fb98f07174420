package sentinel_test

import (
	"crypto/ed25519"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/sentinel"
	"github.com/layer-3/sentinel/adapters/identity"
	"github.com/layer-3/sentinel/adapters/store"
	"github.com/layer-3/sentinel/adapters/tokenizer"
	"github.com/layer-3/sentinel/core"
	"github.com/layer-3/sentinel/internal/mocks"
	"github.com/layer-3/sentinel/internal/solanatx/solanatxtest"
	"github.com/layer-3/sentinel/service"
	transport "github.com/layer-3/sentinel/transport/http"
)

func newTestServer(t *testing.T) (*httptest.Server, *mocks.MockLedger, *mocks.MockSigner) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tok, err := tokenizer.NewHMACTokenizer("client-test-secret-0123456789abcdef")
	require.NoError(t, err)

	ledger := &mocks.MockLedger{}
	signer := &mocks.MockSigner{}
	auth := service.NewAuthService(store.NewMemoryNonceStore(0), tok, identity.NewEd25519Verifier(), log, nil, 0)
	gateway := service.NewTransactionGateway(ledger, service.GatewayConfig{}, log, nil)
	custody := service.NewCustodyService(store.NewMemoryOwnershipRegistry(), signer, gateway, nil, log, nil, 0)

	srv := httptest.NewServer(transport.SetupRouter(transport.RouterConfig{Auth: auth, Custody: custody}))
	t.Cleanup(srv.Close)
	return srv, ledger, signer
}

func TestHTTPClient_EndToEnd(t *testing.T) {
	srv, ledger, signer := newTestServer(t)
	ctx := t.Context()

	owner := solanatxtest.NewKey(t)
	intruder := solanatxtest.NewKey(t)
	custodial := solanatxtest.NewKey(t).PublicKey()

	ownerClient := sentinel.NewHTTPClient(srv.URL)
	session, err := ownerClient.Authenticate(ctx, ed25519.PrivateKey(owner))
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, session.Token, ownerClient.Token())

	signer.On("CreateAccount", mock.Anything, owner.PublicKey().String()).Return(&core.CustodialAccount{
		ID: "acct-1", KeyID: "key-1", Address: custodial.String(),
	}, nil).Once()

	account, err := ownerClient.CreateAccount(ctx, owner.PublicKey().String())
	require.NoError(t, err)
	assert.Equal(t, "acct-1", account.AccountID)

	raw := solanatxtest.Raw(t, solanatxtest.Build(t, custodial, solana.MustPublicKeyFromBase58(service.PlatformProgram)))

	intruderClient := sentinel.NewHTTPClient(srv.URL + "/")
	_, err = intruderClient.Authenticate(ctx, ed25519.PrivateKey(intruder))
	require.NoError(t, err)
	_, err = intruderClient.Sign(ctx, account.AccountID, account.KeyID, raw)
	assert.ErrorIs(t, err, sentinel.ErrForbidden)

	signed := append([]byte{0x42}, raw...)
	ledger.On("Simulate", mock.Anything, raw).Return(&core.SimulationOutcome{}, nil).Once()
	signer.On("Sign", mock.Anything, "acct-1", "key-1", raw).Return(signed, nil).Once()

	out, err := ownerClient.Sign(ctx, account.AccountID, account.KeyID, raw)
	require.NoError(t, err)
	assert.Equal(t, signed, out)

	ledger.AssertExpectations(t)
	signer.AssertExpectations(t)
}

func TestHTTPClient_Errors(t *testing.T) {
	srv, ledger, signer := newTestServer(t)
	ctx := t.Context()
	client := sentinel.NewHTTPClient(srv.URL)

	_, err := client.CreateAccount(ctx, "anything")
	assert.ErrorIs(t, err, sentinel.ErrNotAuthenticated)

	_, err = client.Challenge(ctx, "not-a-wallet")
	assert.ErrorIs(t, err, sentinel.ErrBadRequest)

	key := solanatxtest.NewKey(t)
	_, err = client.Challenge(ctx, key.PublicKey().String())
	require.NoError(t, err)
	_, err = client.Login(ctx, key.PublicKey().String(), "3yZe7d")
	assert.ErrorIs(t, err, sentinel.ErrUnauthorized)

	var apiErr *sentinel.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "unauthorized", apiErr.Kind)

	client.SetToken("expired-or-forged")
	_, err = client.CreateAccount(ctx, key.PublicKey().String())
	assert.ErrorIs(t, err, sentinel.ErrUnauthorized)

	signer.On("Ping", mock.Anything).Return(errors.New("sealed")).Once()
	ledger.On("LatestReferenceHash", mock.Anything).Return("EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N", nil).Once()
	assert.ErrorIs(t, client.Health(ctx), sentinel.ErrServer)
}
