package sentinel

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mr-tron/base58"
)

const maxResponseBytes = 1 << 20

// HTTPClient implements Client over the gateway's JSON API
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// NewHTTPClient creates a client for the gateway at baseURL, e.g. "http://localhost:9000".
// The optional timeout defaults to 30 seconds.
func NewHTTPClient(baseURL string, timeout ...time.Duration) *HTTPClient {
	clientTimeout := 30 * time.Second
	if len(timeout) > 0 {
		clientTimeout = timeout[0]
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: clientTimeout,
		},
	}
}

// SetToken sets the session token used by authenticated calls
func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current session token
func (c *HTTPClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *HTTPClient) Challenge(ctx context.Context, wallet string) (*Challenge, error) {
	var challenge Challenge
	if err := c.do(ctx, http.MethodPost, "/auth/challenge", false, map[string]string{"walletAddress": wallet}, &challenge); err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (c *HTTPClient) Login(ctx context.Context, wallet, signature string) (*Session, error) {
	var session Session
	body := map[string]string{"walletAddress": wallet, "signature": signature}
	if err := c.do(ctx, http.MethodPost, "/auth/verify", false, body, &session); err != nil {
		return nil, err
	}
	c.SetToken(session.Token)
	return &session, nil
}

func (c *HTTPClient) Authenticate(ctx context.Context, key ed25519.PrivateKey) (*Session, error) {
	wallet := base58.Encode(key.Public().(ed25519.PublicKey))

	challenge, err := c.Challenge(ctx, wallet)
	if err != nil {
		return nil, err
	}

	signature := base58.Encode(ed25519.Sign(key, []byte(challenge.Message)))
	return c.Login(ctx, wallet, signature)
}

func (c *HTTPClient) CreateAccount(ctx context.Context, identity string) (*Account, error) {
	var account Account
	if err := c.do(ctx, http.MethodPost, "/custody/accounts", true, map[string]string{"identity": identity}, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (c *HTTPClient) Sign(ctx context.Context, accountID, keyID string, rawTx []byte) ([]byte, error) {
	body := map[string]string{
		"accountId":   accountID,
		"keyId":       keyID,
		"transaction": base64.StdEncoding.EncodeToString(rawTx),
		"encoding":    "base64",
	}

	var result struct {
		SignedTransaction string `json:"signedTransaction"`
	}
	if err := c.do(ctx, http.MethodPost, "/custody/sign", true, body, &result); err != nil {
		return nil, err
	}

	signed, err := base64.StdEncoding.DecodeString(result.SignedTransaction)
	if err != nil {
		return nil, fmt.Errorf("failed to decode signed transaction: %w", err)
	}
	return signed, nil
}

func (c *HTTPClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", false, nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, authenticated bool, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		token := c.Token()
		if token == "" {
			return ErrNotAuthenticated
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Error   string `json:"error"`
			Detail  string `json:"detail"`
			Program string `json:"program"`
		}
		if json.Unmarshal(data, &errBody) == nil {
			apiErr.Kind = errBody.Error
			apiErr.Detail = errBody.Detail
			apiErr.Program = errBody.Program
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
