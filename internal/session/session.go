// Package session provides editor session tokens: exchanging the shared
// editor secret yields a random token with a TTL, so editors do not keep the
// secret itself around between saves. Only the token hash is stored.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("session not found")

// TokenData holds the metadata stored for each editor session token.
type TokenData struct {
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store is the session token storage contract, backed by memory or Redis.
type Store interface {
	Save(ctx context.Context, tokenHash string, data TokenData) error
	Lookup(ctx context.Context, tokenHash string) (TokenData, error)
	Revoke(ctx context.Context, tokenHash string) error
	Ping(ctx context.Context) error
	Close() error
}

// NewToken generates a random session token and the hash under which it is
// stored.
func NewToken() (token, tokenHash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	token = hex.EncodeToString(buf)
	return token, HashToken(token), nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
