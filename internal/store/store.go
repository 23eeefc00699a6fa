// Package store persists the site document to one of two backends chosen at
// startup: a local JSON file or a single row in Postgres. Both implement the
// same read/write contract; writes replace the whole document.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"ecosupply/api/internal/site"
)

// Revision identifies one stored document state: the hex SHA-256 of its
// canonical JSON. It is surfaced over HTTP as the ETag.
type Revision string

var (
	// ErrRevisionMismatch means a conditional write named a base revision
	// that is no longer current.
	ErrRevisionMismatch = errors.New("revision mismatch")
)

type Store interface {
	// Read returns the current document. On first-ever access with nothing
	// stored, it seeds a default document, persists the seed, and returns it.
	Read(ctx context.Context) (site.Document, Revision, error)

	// Write replaces the stored document. A non-empty expected revision makes
	// the write conditional; the empty revision keeps last-write-wins.
	Write(ctx context.Context, doc site.Document, expected Revision) (Revision, error)

	Ping(ctx context.Context) error
}

// MarshalDocument is the canonical on-disk encoding: pretty-printed JSON with
// a trailing newline, matching what the original server wrote.
func MarshalDocument(doc site.Document) ([]byte, error) {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return append(raw, '\n'), nil
}

// ComputeRevision derives the revision for a document from its canonical
// encoding.
func ComputeRevision(doc site.Document) (Revision, error) {
	raw, err := MarshalDocument(doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return Revision(hex.EncodeToString(sum[:])), nil
}
