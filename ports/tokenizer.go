package ports

import "github.com/layer-3/sentinel/core"

// Tokenizer converts between sessions and self-contained session tokens
type Tokenizer interface {
	SessionToToken(session *core.Session) (string, error)
	// TokenToSession returns an error for any token that is malformed,
	// carries a bad signature or has expired
	TokenToSession(token string) (*core.Session, error)
}
