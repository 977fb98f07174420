// Package ledger talks to the Solana JSON-RPC node used for dry runs.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/layer-3/sentinel/core"
	"github.com/layer-3/sentinel/internal/solanatx"
)

// SolanaLedger implements ports.Ledger on top of a Solana RPC endpoint
type SolanaLedger struct {
	client     *rpc.Client
	commitment rpc.CommitmentType
}

// NewSolanaLedger creates a ledger client for endpoint
func NewSolanaLedger(endpoint string) *SolanaLedger {
	return &SolanaLedger{
		client:     rpc.New(endpoint),
		commitment: rpc.CommitmentConfirmed,
	}
}

// LatestReferenceHash returns the most recent blockhash
func (l *SolanaLedger) LatestReferenceHash(ctx context.Context) (string, error) {
	out, err := l.client.GetLatestBlockhash(ctx, l.commitment)
	if err != nil {
		return "", fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	if out == nil || out.Value == nil {
		return "", fmt.Errorf("empty getLatestBlockhash response")
	}
	return out.Value.Blockhash.String(), nil
}

// Simulate dry-runs rawTx with the recent blockhash replaced and signature
// verification disabled, so unsigned transactions can be inspected.
func (l *SolanaLedger) Simulate(ctx context.Context, rawTx []byte) (*core.SimulationOutcome, error) {
	tx, err := solanatx.Decode(rawTx)
	if err != nil {
		return nil, err
	}

	out, err := l.client.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:              false,
		Commitment:             l.commitment,
		ReplaceRecentBlockhash: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to simulate transaction: %w", err)
	}
	if out == nil || out.Value == nil {
		return nil, fmt.Errorf("empty simulateTransaction response")
	}

	outcome := &core.SimulationOutcome{Logs: out.Value.Logs}
	if out.Value.Err != nil {
		detail, err := json.Marshal(out.Value.Err)
		if err != nil {
			detail = []byte(fmt.Sprint(out.Value.Err))
		}
		outcome.Err = string(detail)
	}

	return outcome, nil
}
