package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"ecosupply/api/internal/site"
)

// PostgresStore keeps the document as one jsonb row, mirroring the managed
// table the original deployment used (id text PK, data jsonb). seedFile is
// the local data file consulted when the row does not exist yet, so moving a
// file-backed deployment onto a database keeps its content.
type PostgresStore struct {
	db       *sql.DB
	table    string
	rowID    string
	seedFile string
}

func NewPostgresStore(db *sql.DB, table, rowID, seedFile string) (*PostgresStore, error) {
	if !validIdentifier(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStore{db: db, table: table, rowID: rowID, seedFile: seedFile}, nil
}

// EnsureSchema creates the single-row table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			revision TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Read(ctx context.Context) (site.Document, Revision, error) {
	query := fmt.Sprintf(`SELECT data FROM %s WHERE id=$1`, s.table)
	var raw []byte
	err := s.db.QueryRowContext(ctx, query, s.rowID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		seed := s.seedDocument()
		rev, err := s.Write(ctx, seed, "")
		if err != nil {
			return site.Document{}, "", fmt.Errorf("seed document: %w", err)
		}
		return seed, rev, nil
	}
	if err != nil {
		return site.Document{}, "", fmt.Errorf("read document row: %w", err)
	}

	var doc site.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return site.Document{}, "", fmt.Errorf("parse document row: %w", err)
	}
	doc = site.Migrate(doc)
	rev, err := ComputeRevision(doc)
	if err != nil {
		return site.Document{}, "", err
	}
	return doc, rev, nil
}

func (s *PostgresStore) Write(ctx context.Context, doc site.Document, expected Revision) (Revision, error) {
	if expected != "" {
		query := fmt.Sprintf(`SELECT revision FROM %s WHERE id=$1`, s.table)
		var current string
		err := s.db.QueryRowContext(ctx, query, s.rowID).Scan(&current)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("read current revision: %w", err)
		}
		if Revision(current) != expected {
			return "", ErrRevisionMismatch
		}
	}

	raw, err := MarshalDocument(doc)
	if err != nil {
		return "", err
	}
	rev, err := ComputeRevision(doc)
	if err != nil {
		return "", err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, data, revision, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data, revision=EXCLUDED.revision, updated_at=NOW()
	`, s.table)
	if _, err := s.db.ExecContext(ctx, query, s.rowID, raw, string(rev)); err != nil {
		return "", fmt.Errorf("upsert document row: %w", err)
	}
	return rev, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// seedDocument prefers the local data file over the empty shell, so an
// existing file-backed site survives the switch to database storage. An
// unreadable or malformed file falls back to the shell.
func (s *PostgresStore) seedDocument() site.Document {
	if s.seedFile == "" {
		return site.Default()
	}
	raw, err := os.ReadFile(s.seedFile)
	if err != nil {
		return site.Default()
	}
	var doc site.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return site.Default()
	}
	return site.Migrate(doc)
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return name[0] < '0' || name[0] > '9'
}
