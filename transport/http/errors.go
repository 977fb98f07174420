package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/sentinel/core"
)

// Error kinds returned in the "error" field of failed responses
const (
	KindInvalidRequest      = "invalid_request"
	KindUnauthorized        = "unauthorized"
	KindForbidden           = "forbidden"
	KindDecodeError         = "decode_error"
	KindUnauthorizedProgram = "unauthorized_program"
	KindSimulationFailed    = "simulation_failed"
	KindSignerNotRequired   = "signer_not_required"
	KindRateLimited         = "rate_limited"
	KindInternal            = "internal_error"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
	Program string `json:"program,omitempty"`
}

// abortWithError maps err onto a status code and a minimal body.
// Internal error text is never written to the response.
func abortWithError(c *gin.Context, err error) {
	status, body := classify(err)
	c.AbortWithStatusJSON(status, body)
}

func classify(err error) (int, ErrorResponse) {
	var secErr *core.SecurityError
	if errors.As(err, &secErr) {
		return securityStatus(secErr)
	}

	switch {
	case errors.Is(err, core.ErrInvalidRequest):
		return http.StatusBadRequest, ErrorResponse{Error: KindInvalidRequest}
	case errors.Is(err, core.ErrInvalidIdentity):
		return http.StatusBadRequest, ErrorResponse{Error: KindInvalidRequest, Detail: "invalid wallet address"}
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized, ErrorResponse{Error: KindUnauthorized}
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Error: KindForbidden}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: KindInternal}
	}
}

func securityStatus(secErr *core.SecurityError) (int, ErrorResponse) {
	switch {
	case errors.Is(secErr, core.ErrDecode):
		return http.StatusBadRequest, ErrorResponse{Error: KindDecodeError, Detail: secErr.Detail}
	case errors.Is(secErr, core.ErrUnauthorizedProgram):
		return http.StatusForbidden, ErrorResponse{Error: KindUnauthorizedProgram, Program: secErr.Program}
	case errors.Is(secErr, core.ErrSignerNotRequired):
		return http.StatusForbidden, ErrorResponse{Error: KindSignerNotRequired}
	default:
		return http.StatusForbidden, ErrorResponse{Error: KindSimulationFailed, Detail: secErr.Detail}
	}
}
