package domain

import "github.com/google/uuid"

// Token identifies one session. Both members reference the session by it.
type Token string

// NewToken returns a fresh collision-free token. Tokens are opaque to
// clients; nothing may parse them.
func NewToken() Token {
	return Token(uuid.NewString())
}
