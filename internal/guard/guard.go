// Package guard validates the shared editor secret on write requests. There
// is exactly one secret per deployment; no lockout, no rate limiting, reads
// stay public.
package guard

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// Guard holds the configured secret. When hash is set the supplied secret is
// checked against the bcrypt hash instead of the plaintext value, so
// deployments can avoid keeping the plaintext in the environment.
type Guard struct {
	secret string
	hash   string
}

func New(secret, hash string) *Guard {
	return &Guard{secret: secret, hash: hash}
}

// Authorize reports whether the supplied secret matches the configured one.
func (g *Guard) Authorize(supplied string) bool {
	if supplied == "" {
		return false
	}
	if g.hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(g.hash), []byte(supplied)) == nil
	}
	if g.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(g.secret), []byte(supplied)) == 1
}
