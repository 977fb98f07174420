package ports

import (
	"context"

	"github.com/layer-3/sentinel/core"
)

// Ledger is the blockchain node used for dry runs
type Ledger interface {
	LatestReferenceHash(ctx context.Context) (string, error)
	// Simulate executes rawTx without committing it, substituting a fresh reference hash
	Simulate(ctx context.Context, rawTx []byte) (*core.SimulationOutcome, error)
}
