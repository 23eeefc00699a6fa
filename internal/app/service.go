package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"ecosupply/api/internal/assets"
	"ecosupply/api/internal/config"
	"ecosupply/api/internal/export"
	"ecosupply/api/internal/guard"
	"ecosupply/api/internal/history"
	"ecosupply/api/internal/search"
	"ecosupply/api/internal/session"
	"ecosupply/api/internal/site"
	"ecosupply/api/internal/store"
)

// Service wires the document store, access guard, and the auxiliary services
// together. History, search, and assets are optional; the core read/write
// path never depends on them.
type Service struct {
	cfg      config.Config
	store    store.Store
	guard    *guard.Guard
	sessions session.Store
	search   *search.Service
	history  *history.Service
	assets   *assets.Service
}

func New(cfg config.Config, st store.Store, g *guard.Guard, sessions session.Store, searchSvc *search.Service, hist *history.Service, assetSvc *assets.Service) *Service {
	return &Service{
		cfg:      cfg,
		store:    st,
		guard:    g,
		sessions: sessions,
		search:   searchSvc,
		history:  hist,
		assets:   assetSvc,
	}
}

// Bootstrap seeds storage on first run and primes history and search from
// the current document. Failures here are reported but not fatal; the next
// request path retries seeding naturally.
func (s *Service) Bootstrap(ctx context.Context) error {
	doc, _, err := s.store.Read(ctx)
	if err != nil {
		return fmt.Errorf("initial read: %w", err)
	}
	if s.history != nil {
		if err := s.history.Ensure(doc, "system"); err != nil {
			log.Printf("bootstrap: history init: %v", err)
		}
	}
	if s.search != nil {
		s.search.Index(doc)
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// GetSite returns the current document and its revision.
func (s *Service) GetSite(ctx context.Context) (site.Document, store.Revision, error) {
	return s.store.Read(ctx)
}

// SaveSite validates, normalizes, and persists an incoming document. The
// whole document is replaced; a non-empty expected revision turns the write
// conditional. History and search updates are best-effort.
func (s *Service) SaveSite(ctx context.Context, doc site.Document, expected store.Revision, author string) (store.Revision, error) {
	if err := site.Validate(doc); err != nil {
		return "", domainError(http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	}
	site.Normalize(&doc)

	rev, err := s.store.Write(ctx, doc, expected)
	if errors.Is(err, store.ErrRevisionMismatch) {
		return "", domainError(http.StatusConflict, "REVISION_MISMATCH", "Document changed since base revision", nil)
	}
	if err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}

	if s.history != nil {
		if _, err := s.history.Commit(doc, author, "Update site document"); err != nil {
			log.Printf("history: commit failed: %v", err)
		}
	}
	if s.search != nil {
		s.search.Index(doc)
	}
	return rev, nil
}

// Authorize checks the shared editor secret.
func (s *Service) Authorize(supplied string) bool {
	return s.guard.Authorize(supplied)
}

// CreateSession exchanges a valid editor secret for a session token.
func (s *Service) CreateSession(ctx context.Context, password string) (token string, expiresAt time.Time, err error) {
	if !s.guard.Authorize(password) {
		return "", time.Time{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	}
	token, tokenHash, err := session.NewToken()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("create session: %w", err)
	}
	now := time.Now()
	expiresAt = now.Add(s.cfg.SessionTTL)
	if err := s.sessions.Save(ctx, tokenHash, session.TokenData{IssuedAt: now, ExpiresAt: expiresAt}); err != nil {
		return "", time.Time{}, fmt.Errorf("save session: %w", err)
	}
	return token, expiresAt, nil
}

// SessionValid reports whether a bearer token names a live session.
func (s *Service) SessionValid(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	data, err := s.sessions.Lookup(ctx, session.HashToken(token))
	if err != nil {
		return false
	}
	return time.Now().Before(data.ExpiresAt)
}

// RevokeSession invalidates a session token. Unknown tokens are a no-op.
func (s *Service) RevokeSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, session.HashToken(token))
}

// Search answers a content query over tiles, pages, and seals.
func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// History lists recent document revisions, newest first.
func (s *Service) History(limit int) ([]history.Entry, error) {
	if s.history == nil {
		return nil, domainError(http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "History is not configured", nil)
	}
	return s.history.List(limit)
}

// HistoryAt returns the document as of one revision.
func (s *Service) HistoryAt(hash string) (site.Document, error) {
	if s.history == nil {
		return site.Document{}, domainError(http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "History is not configured", nil)
	}
	doc, err := s.history.ReadAt(hash)
	if err != nil {
		return site.Document{}, domainError(http.StatusNotFound, "NOT_FOUND", "Revision not found", nil)
	}
	return doc, nil
}

// UploadAsset stores an uploaded image and returns its public URL.
func (s *Service) UploadAsset(ctx context.Context, filename, contentType string, size int64, body io.Reader) (string, error) {
	if s.assets == nil {
		return "", domainError(http.StatusServiceUnavailable, "ASSETS_UNAVAILABLE", "Asset storage is not configured", nil)
	}
	url, err := s.assets.Put(ctx, filename, contentType, size, body)
	if err != nil {
		return "", fmt.Errorf("upload asset: %w", err)
	}
	return url, nil
}

// ExportPage renders a product page and prints it to PDF.
func (s *Service) ExportPage(ctx context.Context, pageID string) (*export.Result, error) {
	doc, _, err := s.store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	result, err := export.Page(doc, pageID)
	if errors.Is(err, export.ErrPDFDependencyMissing) {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export requires chromium", nil)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
