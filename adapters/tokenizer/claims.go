package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the claims carried by a session token. The subject is the
// caller's wallet address.
type SessionClaims struct {
	jwt.RegisteredClaims
}
