package tokenizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/sentinel/core"
)

const AudienceSession = "session:access"

// DefaultSessionTTL is the validity window of a session token
const DefaultSessionTTL = 24 * time.Hour

// minSecretLength is the shortest HMAC secret accepted
const minSecretLength = 32

var ErrWeakSecret = errors.New("token secret must be at least 32 bytes")

// HMACTokenizer issues and verifies HS256 session tokens. Tokens are signed
// with the first secret; any configured secret verifies, so secrets can be
// rotated by prepending a new one.
type HMACTokenizer struct {
	secrets [][]byte
	now     func() time.Time
}

// NewHMACTokenizer creates a tokenizer from one or more secrets, active secret first
func NewHMACTokenizer(secrets ...string) (*HMACTokenizer, error) {
	if len(secrets) == 0 {
		return nil, ErrWeakSecret
	}

	keys := make([][]byte, 0, len(secrets))
	for _, s := range secrets {
		if len(s) < minSecretLength {
			return nil, ErrWeakSecret
		}
		keys = append(keys, []byte(s))
	}

	return &HMACTokenizer{secrets: keys, now: time.Now}, nil
}

// SessionToToken converts a Session to a signed token
func (h *HMACTokenizer) SessionToToken(session *core.Session) (string, error) {
	if session == nil || session.Identity == "" {
		return "", core.ErrInvalidIdentity
	}

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Identity,
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(h.secrets[0])
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

// TokenToSession parses and verifies a token. It never panics on malformed
// input; every rejection is ErrInvalidToken or ErrTokenExpired.
func (h *HMACTokenizer) TokenToSession(tokenStr string) (*core.Session, error) {
	var lastErr error = core.ErrInvalidToken

	for _, secret := range h.secrets {
		session, err := h.parse(tokenStr, secret)
		if err == nil {
			return session, nil
		}
		// the signature matched this secret, so no other secret can help
		if errors.Is(err, core.ErrTokenExpired) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

func (h *HMACTokenizer) parse(tokenStr string, secret []byte) (*core.Session, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(AudienceSession),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(h.now),
	)

	token, err := parser.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, core.ErrInvalidToken
	}

	session := &core.Session{
		ID:        claims.ID,
		Identity:  claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}

	return session, nil
}
