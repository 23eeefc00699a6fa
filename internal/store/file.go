package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ecosupply/api/internal/site"
)

// FileStore keeps the document in one pretty-printed JSON file. This is the
// fallback backend when no database is configured.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Read(ctx context.Context) (site.Document, Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *FileStore) readLocked() (site.Document, Revision, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		seed := site.Default()
		rev, err := s.writeLocked(seed)
		if err != nil {
			return site.Document{}, "", fmt.Errorf("seed document: %w", err)
		}
		return seed, rev, nil
	}
	if err != nil {
		return site.Document{}, "", fmt.Errorf("read %s: %w", s.path, err)
	}

	var doc site.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return site.Document{}, "", fmt.Errorf("parse %s: %w", s.path, err)
	}
	doc = site.Migrate(doc)
	rev, err := ComputeRevision(doc)
	if err != nil {
		return site.Document{}, "", err
	}
	return doc, rev, nil
}

func (s *FileStore) Write(ctx context.Context, doc site.Document, expected Revision) (Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expected != "" {
		_, current, err := s.readLocked()
		if err != nil {
			return "", err
		}
		if current != expected {
			return "", ErrRevisionMismatch
		}
	}
	return s.writeLocked(doc)
}

func (s *FileStore) writeLocked(doc site.Document) (Revision, error) {
	raw, err := MarshalDocument(doc)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", s.path, err)
	}
	return ComputeRevision(doc)
}

func (s *FileStore) Ping(ctx context.Context) error {
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat data dir: %w", err)
	}
	return nil
}
