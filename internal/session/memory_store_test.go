package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreSaveAndLookup(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	data := TokenData{IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	if err := store.Save(ctx, "hash-1", data); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Lookup(ctx, "hash-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !got.ExpiresAt.Equal(data.ExpiresAt) {
		t.Fatalf("expected stored expiry to round-trip")
	}
}

func TestMemoryStoreLookupUnknown(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Lookup(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreExpiredTokenIsGone(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	data := TokenData{IssuedAt: time.Now().Add(-2 * time.Hour), ExpiresAt: time.Now().Add(-time.Hour)}
	if err := store.Save(ctx, "stale", data); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, err := store.Lookup(ctx, "stale")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired token to report ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreRevoke(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	data := TokenData{IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	if err := store.Save(ctx, "hash-1", data); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Revoke(ctx, "hash-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := store.Lookup(ctx, "hash-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected revoked token to be gone, got %v", err)
	}

	// Revoking an unknown token is a no-op.
	if err := store.Revoke(ctx, "missing"); err != nil {
		t.Fatalf("revoke unknown: %v", err)
	}
}

func TestNewTokenIsRandomAndHashed(t *testing.T) {
	token1, hash1, err := NewToken()
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	token2, hash2, err := NewToken()
	if err != nil {
		t.Fatalf("new token: %v", err)
	}

	if token1 == token2 {
		t.Fatalf("tokens must be random")
	}
	if hash1 == hash2 {
		t.Fatalf("hashes must differ for different tokens")
	}
	if HashToken(token1) != hash1 {
		t.Fatalf("hash must be derivable from the token")
	}
	if token1 == hash1 {
		t.Fatalf("stored hash must not equal the raw token")
	}
}
