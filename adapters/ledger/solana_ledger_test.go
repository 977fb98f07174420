package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/layer-3/sentinel/internal/solanatx"
	"github.com/layer-3/sentinel/internal/solanatx/solanatxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// newRPCServer answers JSON-RPC calls with results[method]
func newRPCServer(t *testing.T, results map[string]string, seen *[]rpcRequest) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if seen != nil {
			*seen = append(*seen, req)
		}

		result, ok := results[req.Method]
		if !ok {
			http.Error(w, "unknown method", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":` + result + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSolanaLedger_LatestReferenceHash(t *testing.T) {
	hash := solana.HashFromBytes(make([]byte, 32)).String()
	srv := newRPCServer(t, map[string]string{
		"getLatestBlockhash": `{"context":{"slot":1},"value":{"blockhash":"` + hash + `","lastValidBlockHeight":100}}`,
	}, nil)

	got, err := NewSolanaLedger(srv.URL).LatestReferenceHash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hash, got)
}

func TestSolanaLedger_Simulate(t *testing.T) {
	var seen []rpcRequest
	srv := newRPCServer(t, map[string]string{
		"simulateTransaction": `{"context":{"slot":1},"value":{"err":null,"logs":["Program 11111111111111111111111111111111 invoke [1]","Program 11111111111111111111111111111111 success"]}}`,
	}, &seen)

	payer := solanatxtest.NewKey(t).PublicKey()
	raw := solanatxtest.Raw(t, solanatxtest.Build(t, payer, solana.SystemProgramID))

	outcome, err := NewSolanaLedger(srv.URL).Simulate(context.Background(), raw)
	require.NoError(t, err)
	assert.Empty(t, outcome.Err)
	assert.Len(t, outcome.Logs, 2)

	require.Len(t, seen, 1)
	require.Len(t, seen[0].Params, 2)
	var opts map[string]interface{}
	require.NoError(t, json.Unmarshal(seen[0].Params[1], &opts))
	assert.Equal(t, true, opts["replaceRecentBlockhash"])
	assert.NotEqual(t, true, opts["sigVerify"])
}

func TestSolanaLedger_SimulateReportsError(t *testing.T) {
	srv := newRPCServer(t, map[string]string{
		"simulateTransaction": `{"context":{"slot":1},"value":{"err":{"InstructionError":[0,{"Custom":1}]},"logs":["Program log: custom program error: 0x1"]}}`,
	}, nil)

	payer := solanatxtest.NewKey(t).PublicKey()
	raw := solanatxtest.Raw(t, solanatxtest.Build(t, payer, solana.SystemProgramID))

	outcome, err := NewSolanaLedger(srv.URL).Simulate(context.Background(), raw)
	require.NoError(t, err)
	assert.Contains(t, outcome.Err, "InstructionError")
}

func TestSolanaLedger_SimulateRejectsUndecodable(t *testing.T) {
	srv := newRPCServer(t, map[string]string{}, nil)

	_, err := NewSolanaLedger(srv.URL).Simulate(context.Background(), []byte{0x01})
	assert.ErrorIs(t, err, solanatx.ErrMalformed)
}

func TestSolanaLedger_RPCFailure(t *testing.T) {
	srv := newRPCServer(t, map[string]string{}, nil)

	payer := solanatxtest.NewKey(t).PublicKey()
	raw := solanatxtest.Raw(t, solanatxtest.Build(t, payer, solana.SystemProgramID))

	_, err := NewSolanaLedger(srv.URL).Simulate(context.Background(), raw)
	assert.Error(t, err)
}
