package sentinel

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotAuthenticated is returned by calls that need a session before Login succeeded
	ErrNotAuthenticated = errors.New("client is not authenticated")

	// ErrUnauthorized is returned when the server rejects the credentials or the session token
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned for ownership and transaction policy rejections
	ErrForbidden = errors.New("forbidden")

	// ErrBadRequest is returned when the server rejects the request as malformed
	ErrBadRequest = errors.New("bad request")

	// ErrRateLimited is returned when the server throttles the client
	ErrRateLimited = errors.New("rate limited")

	// ErrServer is returned for 5xx responses
	ErrServer = errors.New("server error")
)

// APIError is a non-2xx response from the gateway
type APIError struct {
	StatusCode int
	Kind       string // e.g. "unauthorized_program", "simulation_failed"
	Detail     string
	Program    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("sentinel: %d %s", e.StatusCode, e.Kind)
	if e.Program != "" {
		msg += ": " + e.Program
	} else if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap maps the status code onto the package's sentinel errors
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= http.StatusInternalServerError:
		return ErrServer
	case e.StatusCode >= http.StatusBadRequest:
		return ErrBadRequest
	default:
		return nil
	}
}
