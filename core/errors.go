package core

import (
	"errors"
	"fmt"
)

var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidIdentity  = errors.New("invalid identity")

	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeExpired  = errors.New("challenge expired")
	ErrChallengeMismatch = errors.New("challenge nonce mismatch")

	// ErrUnauthorized wraps every authentication failure surfaced to callers
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller does not own the targeted account
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidRequest is returned for requests missing required fields
	ErrInvalidRequest = errors.New("invalid request")

	ErrDecode              = errors.New("transaction decode failed")
	ErrUnauthorizedProgram = errors.New("unauthorized program")
	ErrSimulationFailed    = errors.New("simulation failed")
	ErrSignerNotRequired   = errors.New("transaction does not require the custodial account signature")

	ErrAccountNotFound = errors.New("custodial account not found")
	ErrSignerFailed    = errors.New("custodial signer failed")
	ErrLedgerFailed    = errors.New("ledger unavailable")
	ErrStoreFailed     = errors.New("store operation failed")
)

// SecurityError is a policy rejection raised by the transaction security gateway.
// It unwraps to ErrDecode, ErrUnauthorizedProgram, ErrSimulationFailed or
// ErrSignerNotRequired.
type SecurityError struct {
	Reason  error
	Program string // Offending program address, set for ErrUnauthorizedProgram
	Detail  string
}

func (e *SecurityError) Error() string {
	switch {
	case e.Program != "":
		return fmt.Sprintf("%s: %s", e.Reason, e.Program)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
	default:
		return e.Reason.Error()
	}
}

func (e *SecurityError) Unwrap() error {
	return e.Reason
}
