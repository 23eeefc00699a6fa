// Package client is the Go counterpart of the browser hybrid store: it talks
// to the site API, keeps a local cached copy for offline reads, and performs
// optimistic writes. Reads are "best available", never an error; writes hit
// the cache first and report whether the remote write also landed.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ecosupply/api/internal/site"
)

const (
	cacheFile  = "site.json"
	editorAuth = "x-editor-password"
)

// Credential is an explicit object instead of the ambient password global the
// original editors used. A session token is preferred when present; the raw
// secret is the fallback. Clear drops both.
type Credential struct {
	Secret    string
	Token     string
	ExpiresAt time.Time
}

func (c *Credential) Expired() bool {
	if c == nil {
		return true
	}
	if c.Token != "" && !c.ExpiresAt.IsZero() {
		return time.Now().After(c.ExpiresAt)
	}
	return c.Token == "" && c.Secret == ""
}

func (c *Credential) Clear() {
	if c == nil {
		return
	}
	c.Secret = ""
	c.Token = ""
	c.ExpiresAt = time.Time{}
}

type Client struct {
	baseURL string
	dir     string
	http    *http.Client
}

// New creates a client whose cache and write queue live under dir.
func New(baseURL, dir string) *Client {
	return &Client{
		baseURL: baseURL,
		dir:     dir,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Load attempts a remote read. On success the local cache is overwritten and
// the fresh document returned; on any failure the last cached copy is
// returned, or the default shell if no cache exists yet. It never fails.
func (c *Client) Load(ctx context.Context) site.Document {
	doc, err := c.fetchRemote(ctx)
	if err != nil {
		log.Printf("client: remote load failed, using cache: %v", err)
		return c.loadCache()
	}
	if err := c.writeCache(doc); err != nil {
		log.Printf("client: cache write failed: %v", err)
	}
	return doc
}

// Save writes the document to the local cache unconditionally, then attempts
// the remote write. It returns true only when the remote write succeeded; on
// remote failure the local write stays in place and the document is queued
// for replay.
func (c *Client) Save(ctx context.Context, doc site.Document, cred *Credential) bool {
	if err := c.writeCache(doc); err != nil {
		log.Printf("client: cache write failed: %v", err)
	}

	if err := c.putRemote(ctx, doc, cred); err != nil {
		log.Printf("client: remote save failed, queued for replay: %v", err)
		if qerr := c.enqueue(doc); qerr != nil {
			log.Printf("client: enqueue failed: %v", qerr)
		}
		return false
	}
	return true
}

// Reset clears the local cache and write queue only; remote state is never
// touched.
func (c *Client) Reset() error {
	if err := os.Remove(c.cachePath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache: %w", err)
	}
	if err := os.Remove(c.queuePath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove queue: %w", err)
	}
	return nil
}

// CreateSession exchanges the editor secret for a session token credential.
func (c *Client) CreateSession(ctx context.Context, password string) (*Credential, error) {
	body, err := json.Marshal(map[string]string{"password": password})
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/session", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("create session: status %d", resp.StatusCode)
	}

	var payload struct {
		Token     string `json:"token"`
		ExpiresAt int64  `json:"expiresAt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("parse session response: %w", err)
	}
	return &Credential{Token: payload.Token, ExpiresAt: time.Unix(payload.ExpiresAt, 0)}, nil
}

func (c *Client) fetchRemote(ctx context.Context) (site.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/site", nil)
	if err != nil {
		return site.Document{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return site.Document{}, fmt.Errorf("get site: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return site.Document{}, fmt.Errorf("get site: status %d", resp.StatusCode)
	}

	var doc site.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return site.Document{}, fmt.Errorf("parse site: %w", err)
	}
	return doc, nil
}

func (c *Client) putRemote(ctx context.Context, doc site.Document, cred *Credential) error {
	if cred.Expired() {
		return fmt.Errorf("credential expired")
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/api/site", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cred.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cred.Token)
	} else {
		req.Header.Set(editorAuth, cred.Secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("put site: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("put site: status %d %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

func (c *Client) cachePath() string { return filepath.Join(c.dir, cacheFile) }

func (c *Client) loadCache() site.Document {
	raw, err := os.ReadFile(c.cachePath())
	if err != nil {
		return site.Default()
	}
	var doc site.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.Printf("client: corrupt cache, using default: %v", err)
		return site.Default()
	}
	return doc
}

func (c *Client) writeCache(doc site.Document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(c.cachePath(), raw, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}
