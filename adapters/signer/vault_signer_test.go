package signer

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/layer-3/sentinel/core"
	"github.com/layer-3/sentinel/internal/solanatx"
	"github.com/layer-3/sentinel/internal/solanatx/solanatxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransit emulates the subset of Vault's transit API used by VaultSigner
type fakeTransit struct {
	mu     sync.Mutex
	keys   map[string]ed25519.PrivateKey
	sealed bool
}

func newFakeTransit(t *testing.T) (*fakeTransit, *httptest.Server) {
	ft := &fakeTransit{keys: make(map[string]ed25519.PrivateKey)}
	srv := httptest.NewServer(ft)
	t.Cleanup(srv.Close)
	return ft, srv
}

func (f *fakeTransit) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/v1/sys/health":
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"initialized": true, "sealed": f.sealed})

	case strings.HasPrefix(r.URL.Path, "/v1/transit/keys/") && r.Method == http.MethodPost:
		name := strings.TrimPrefix(r.URL.Path, "/v1/transit/keys/")
		_, priv, _ := ed25519.GenerateKey(rand.Reader)
		f.keys[name] = priv
		w.WriteHeader(http.StatusNoContent)

	case strings.HasPrefix(r.URL.Path, "/v1/transit/keys/") && r.Method == http.MethodGet:
		name := strings.TrimPrefix(r.URL.Path, "/v1/transit/keys/")
		priv, ok := f.keys[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		pub := priv.Public().(ed25519.PublicKey)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"type":           "ed25519",
				"latest_version": 1,
				"keys": map[string]interface{}{
					"1": map[string]interface{}{"public_key": base64.StdEncoding.EncodeToString(pub)},
				},
			},
		})

	case strings.HasPrefix(r.URL.Path, "/v1/transit/sign/"):
		name := strings.TrimPrefix(r.URL.Path, "/v1/transit/sign/")
		priv, ok := f.keys[name]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"errors":["signing key not found"]}`))
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Input string `json:"input"`
		}
		_ = json.Unmarshal(body, &req)
		input, _ := base64.StdEncoding.DecodeString(req.Input)
		sig := ed25519.Sign(priv, input)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"signature": "vault:v1:" + base64.StdEncoding.EncodeToString(sig)},
		})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestSigner(t *testing.T, srv *httptest.Server) *VaultSigner {
	s, err := NewVaultSigner(VaultConfig{Address: srv.URL, Token: "root", TransitPath: "/transit/"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func TestVaultSigner_CreateAccountAndSign(t *testing.T) {
	ctx := context.Background()
	_, srv := newFakeTransit(t)
	s := newTestSigner(t, srv)

	account, err := s.CreateAccount(ctx, "wallet-a")
	require.NoError(t, err)
	require.NotEmpty(t, account.ID)
	require.NotEmpty(t, account.KeyID)

	address, err := solana.PublicKeyFromBase58(account.Address)
	require.NoError(t, err)

	tx := solanatxtest.Build(t, address, solana.SystemProgramID)
	signed, err := s.Sign(ctx, account.ID, account.KeyID, solanatxtest.Raw(t, tx))
	require.NoError(t, err)

	decoded, err := solanatx.Decode(signed)
	require.NoError(t, err)
	require.Len(t, decoded.Signatures, 1)

	message, err := decoded.Message.MarshalBinary()
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(address[:]), message, decoded.Signatures[0][:]))
}

func TestVaultSigner_RejectsTransactionsNotRequiringKey(t *testing.T) {
	ctx := context.Background()
	_, srv := newFakeTransit(t)
	s := newTestSigner(t, srv)

	account, err := s.CreateAccount(ctx, "wallet-a")
	require.NoError(t, err)

	other := solanatxtest.NewKey(t).PublicKey()
	tx := solanatxtest.Build(t, other, solana.SystemProgramID)

	_, err = s.Sign(ctx, account.ID, account.KeyID, solanatxtest.Raw(t, tx))
	assert.ErrorIs(t, err, ErrNotSigner)
}

func TestVaultSigner_UnknownKey(t *testing.T) {
	_, srv := newFakeTransit(t)
	s := newTestSigner(t, srv)

	payer := solanatxtest.NewKey(t).PublicKey()
	tx := solanatxtest.Build(t, payer, solana.SystemProgramID)

	_, err := s.Sign(context.Background(), "missing", "missing", solanatxtest.Raw(t, tx))
	assert.ErrorIs(t, err, core.ErrSignerFailed)
}

func TestVaultSigner_Ping(t *testing.T) {
	ft, srv := newFakeTransit(t)
	s := newTestSigner(t, srv)

	require.NoError(t, s.Ping(context.Background()))

	ft.mu.Lock()
	ft.sealed = true
	ft.mu.Unlock()
	assert.ErrorIs(t, s.Ping(context.Background()), core.ErrSignerFailed)
}

func TestParseTransitSignature(t *testing.T) {
	sig := make([]byte, ed25519.SignatureSize)
	got, err := parseTransitSignature("vault:v3:" + base64.StdEncoding.EncodeToString(sig))
	require.NoError(t, err)
	assert.Equal(t, sig, got)

	for _, bad := range []interface{}{nil, 42, "vault:v1", "other:v1:AAAA", "vault:v1:AAAA"} {
		_, err := parseTransitSignature(bad)
		assert.ErrorIs(t, err, core.ErrSignerFailed)
	}
}
