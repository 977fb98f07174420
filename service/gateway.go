package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/layer-3/sentinel/core"
	"github.com/layer-3/sentinel/internal/metrics"
	"github.com/layer-3/sentinel/internal/solanatx"
	"github.com/layer-3/sentinel/ports"
)

// Programs of the reference deployment
const (
	PlatformProgram      = "E3aVLq7oT4BFPjHRXaZmYupDJ9EZTG8At8oafLKzPMBG"
	SystemProgram        = "11111111111111111111111111111111"
	MemoProgram          = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcQb"
	TokenProgram         = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssetMetadataProgram = "CoREENxT6tW1HoK8ypY1SxRMZTcVPm7R94rH4PZNhX7d"
)

// DefaultSimulationTimeout bounds a single ledger dry run
const DefaultSimulationTimeout = 10 * time.Second

// DefaultAllowedPrograms returns the reference allow-list
func DefaultAllowedPrograms() []string {
	return []string{PlatformProgram, SystemProgram, MemoProgram, TokenProgram, AssetMetadataProgram}
}

// DefaultDangerMarkers returns the log fragments that fail a simulation even
// when the ledger reports success. Matching is case-insensitive.
func DefaultDangerMarkers() []string {
	return []string{"insufficient funds", "custom error", "custom program error"}
}

// GatewayConfig configures the TransactionGateway
type GatewayConfig struct {
	AllowedPrograms   []string
	DangerMarkers     []string
	SimulationTimeout time.Duration
}

// TransactionGateway inspects caller-submitted transactions before anything
// is sent to the custodial signer.
type TransactionGateway struct {
	ledger  ports.Ledger
	allowed map[string]struct{}
	markers []string
	timeout time.Duration
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewTransactionGateway creates a gateway. Empty config fields fall back to the defaults.
func NewTransactionGateway(ledger ports.Ledger, cfg GatewayConfig, log *slog.Logger, m *metrics.Metrics) *TransactionGateway {
	programs := cfg.AllowedPrograms
	if len(programs) == 0 {
		programs = DefaultAllowedPrograms()
	}
	allowed := make(map[string]struct{}, len(programs))
	for _, p := range programs {
		allowed[p] = struct{}{}
	}

	markers := cfg.DangerMarkers
	if len(markers) == 0 {
		markers = DefaultDangerMarkers()
	}
	lowered := make([]string, 0, len(markers))
	for _, marker := range markers {
		lowered = append(lowered, strings.ToLower(marker))
	}

	timeout := cfg.SimulationTimeout
	if timeout <= 0 {
		timeout = DefaultSimulationTimeout
	}

	return &TransactionGateway{
		ledger:  ledger,
		allowed: allowed,
		markers: lowered,
		timeout: timeout,
		log:     log,
		metrics: m,
	}
}

// Inspect runs decode, allow-list, simulation and log checks in that order,
// stopping at the first failure. Policy failures are *core.SecurityError; a
// ledger that cannot be reached yields core.ErrLedgerFailed instead.
func (g *TransactionGateway) Inspect(ctx context.Context, rawTx []byte) (*core.SimulationResult, error) {
	tx, err := solanatx.Decode(rawTx)
	if err != nil {
		return nil, g.reject("decode_error", &core.SecurityError{Reason: core.ErrDecode, Detail: "transaction could not be decoded"}, err)
	}

	programIDs, err := solanatx.ProgramIDs(tx)
	if err != nil {
		return nil, g.reject("decode_error", &core.SecurityError{Reason: core.ErrDecode, Detail: "transaction could not be decoded"}, err)
	}

	programs := make([]string, 0, len(programIDs))
	for _, id := range programIDs {
		program := id.String()
		if _, ok := g.allowed[program]; !ok {
			return nil, g.reject("unauthorized_program", &core.SecurityError{Reason: core.ErrUnauthorizedProgram, Program: program}, nil)
		}
		programs = append(programs, program)
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	signers := make([]string, 0, required)
	for i := 0; i < required && i < len(tx.Message.AccountKeys); i++ {
		signers = append(signers, tx.Message.AccountKeys[i].String())
	}

	simCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	outcome, err := g.ledger.Simulate(simCtx, rawTx)
	g.metrics.ObserveSimulation(time.Since(start).Seconds())
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(simCtx.Err(), context.DeadlineExceeded)) {
		return nil, g.reject("simulation_timeout", &core.SecurityError{Reason: core.ErrSimulationFailed, Detail: "simulation timed out"}, err)
	}
	if err != nil || outcome == nil {
		if err == nil {
			err = errors.New("empty simulation outcome")
		}
		// Not a verdict on the transaction; callers may retry.
		g.metrics.GatewayVerdict("ledger_error")
		g.log.Error("Ledger simulation failed", "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrLedgerFailed, err)
	}

	if outcome.Err != "" {
		return nil, g.reject("simulation_error", &core.SecurityError{Reason: core.ErrSimulationFailed, Detail: outcome.Err}, nil)
	}

	if marker, ok := g.scanLogs(outcome.Logs); ok {
		return nil, g.reject("suspicious_logs", &core.SecurityError{Reason: core.ErrSimulationFailed, Detail: "suspicious simulation logs"}, errors.New(marker))
	}

	g.metrics.GatewayVerdict("passed")
	g.log.Debug("Transaction passed inspection", slog.Any("programs", programs))

	return &core.SimulationResult{Success: true, Programs: programs, Signers: signers}, nil
}

// Ping reports whether the ledger answers a reference hash request
func (g *TransactionGateway) Ping(ctx context.Context) error {
	if _, err := g.ledger.LatestReferenceHash(ctx); err != nil {
		return fmt.Errorf("%w: %w", core.ErrLedgerFailed, err)
	}
	return nil
}

func (g *TransactionGateway) scanLogs(logs []string) (string, bool) {
	for _, line := range logs {
		lowered := strings.ToLower(line)
		for _, marker := range g.markers {
			if strings.Contains(lowered, marker) {
				return marker, true
			}
		}
	}
	return "", false
}

// reject records a policy rejection. cause is logged but never returned to callers.
func (g *TransactionGateway) reject(verdict string, secErr *core.SecurityError, cause error) error {
	g.metrics.GatewayVerdict(verdict)

	attrs := []any{slog.String("verdict", verdict)}
	if secErr.Program != "" {
		attrs = append(attrs, slog.String("program", secErr.Program))
	}
	if cause != nil {
		attrs = append(attrs, "err", cause)
	}
	g.log.Warn("Transaction blocked", attrs...)

	return secErr
}
