package core

import "time"

// CustodialAccount is a secondary wallet whose key is held by the custodial signer
type CustodialAccount struct {
	ID        string // Signer-side account identifier
	KeyID     string // Signer-side key identifier inside the account
	Address   string // On-chain address of the custodial key
	Owner     string // Identity the account is bound to
	CreatedAt time.Time
}

// SimulationOutcome is the raw answer of a ledger dry run
type SimulationOutcome struct {
	Err  string   // Execution error reported by the ledger, empty on success
	Logs []string // Program log lines emitted during the run
}

// SimulationResult is the verdict of the transaction security gateway
type SimulationResult struct {
	Success     bool
	ErrorDetail string
	Programs    []string // Programs referenced by the inspected transaction
	Signers     []string // Accounts whose signature the transaction requires
}
