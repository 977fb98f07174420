package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/sentinel/core"
	"github.com/layer-3/sentinel/internal/solanatx"
	"github.com/layer-3/sentinel/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

type ChallengeRequest struct {
	WalletAddress string `json:"walletAddress"`
}

type ChallengeResponse struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Challenge issues a nonce for the wallet to sign
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.WalletAddress == "" {
		abortWithError(c, core.ErrInvalidRequest)
		return
	}

	challenge, err := h.authService.CreateChallenge(c.Request.Context(), req.WalletAddress)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ChallengeResponse{
		Nonce:     challenge.Nonce,
		Message:   challenge.Message(),
		ExpiresAt: challenge.ExpiresAt,
	})
}

type VerifyRequest struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"` // base58 ed25519 signature over the challenge message
}

type VerifyResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Verify exchanges a signed challenge for a session token
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.WalletAddress == "" || req.Signature == "" {
		abortWithError(c, core.ErrInvalidRequest)
		return
	}

	token, session, err := h.authService.Login(c.Request.Context(), req.WalletAddress, req.Signature)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, VerifyResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: session.ExpiresAt,
	})
}

// CustodyHandlers contains HTTP handlers for custodial accounts
type CustodyHandlers struct {
	custody *service.CustodyService
}

// NewCustodyHandlers creates new custody handlers
func NewCustodyHandlers(custody *service.CustodyService) *CustodyHandlers {
	return &CustodyHandlers{custody: custody}
}

type CreateAccountRequest struct {
	Identity string `json:"identity"`
}

type AccountResponse struct {
	AccountID string `json:"accountId"`
	KeyID     string `json:"keyId"`
	Address   string `json:"address"`
}

// CreateAccount provisions the caller's custodial account
func (h *CustodyHandlers) CreateAccount(c *gin.Context) {
	session := sessionFrom(c)

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, core.ErrInvalidRequest)
		return
	}

	account, err := h.custody.CreateAccount(c.Request.Context(), session, req.Identity)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, AccountResponse{
		AccountID: account.ID,
		KeyID:     account.KeyID,
		Address:   account.Address,
	})
}

type SignRequest struct {
	AccountID   string `json:"accountId"`
	KeyID       string `json:"keyId"`
	Transaction string `json:"transaction"`
	Encoding    string `json:"encoding"` // "hex" (default) or "base64"
}

type SignResponse struct {
	SignedTransaction string `json:"signedTransaction"`
	Encoding          string `json:"encoding"`
}

// Sign inspects and signs a transaction with the caller's custodial key
func (h *CustodyHandlers) Sign(c *gin.Context) {
	session := sessionFrom(c)

	var req SignRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AccountID == "" || req.KeyID == "" || req.Transaction == "" {
		abortWithError(c, core.ErrInvalidRequest)
		return
	}

	encoding := req.Encoding
	if encoding == "" {
		encoding = solanatx.EncodingHex
	}

	raw, err := solanatx.DecodePayload(req.Transaction, encoding)
	if err != nil {
		abortWithError(c, &core.SecurityError{Reason: core.ErrDecode, Detail: "transaction payload could not be decoded"})
		return
	}

	signed, err := h.custody.SignTransaction(c.Request.Context(), session, req.AccountID, req.KeyID, raw)
	if err != nil {
		abortWithError(c, err)
		return
	}

	text, err := solanatx.EncodePayload(signed, encoding)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SignResponse{SignedTransaction: text, Encoding: encoding})
}

// Health reports liveness and whether the custodial signer and the ledger are reachable
func (h *CustodyHandlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	signer, ledger := "reachable", "reachable"
	if err := h.custody.Ping(ctx); err != nil {
		signer, status, code = "unreachable", "degraded", http.StatusServiceUnavailable
	}
	if err := h.custody.PingLedger(ctx); err != nil {
		ledger, status, code = "unreachable", "degraded", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{"status": status, "signer": signer, "ledger": ledger})
}

func sessionFrom(c *gin.Context) *core.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	session, _ := v.(*core.Session)
	return session
}
