package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ecosupply/api/internal/site"
)

// fakeBackend is a minimal stand-in for the site API: GET returns the stored
// document, PUT replaces it when the password header matches.
type fakeBackend struct {
	mu       sync.Mutex
	doc      site.Document
	failGets bool
	failPuts bool
	putLimit int // when > 0, only this many PUTs succeed in total
	puts     []site.Document
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{doc: site.Default()}
}

func (b *fakeBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/site":
			if b.failGets {
				http.Error(w, "down", http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(b.doc)
		case r.Method == http.MethodPut && r.URL.Path == "/api/site":
			if b.failPuts || (b.putLimit > 0 && len(b.puts) >= b.putLimit) {
				http.Error(w, "down", http.StatusInternalServerError)
				return
			}
			if r.Header.Get("x-editor-password") != "55" && r.Header.Get("Authorization") == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			var doc site.Document
			if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
				http.Error(w, "bad body", http.StatusBadRequest)
				return
			}
			b.doc = doc
			b.puts = append(b.puts, doc)
			json.NewEncoder(w).Encode(map[string]any{"ok": true})
		default:
			http.NotFound(w, r)
		}
	})
}

func TestLoadPrefersRemoteAndCaches(t *testing.T) {
	backend := newFakeBackend()
	backend.doc.Site.Title = "Vom Server"
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	c := New(server.URL, t.TempDir())
	doc := c.Load(context.Background())
	if doc.Site.Title != "Vom Server" {
		t.Fatalf("expected remote document, got %q", doc.Site.Title)
	}

	// Backend goes down: the cached copy answers.
	backend.mu.Lock()
	backend.failGets = true
	backend.mu.Unlock()

	doc = c.Load(context.Background())
	if doc.Site.Title != "Vom Server" {
		t.Fatalf("expected cached document after remote failure, got %q", doc.Site.Title)
	}
}

func TestLoadWithoutCacheFallsBackToDefault(t *testing.T) {
	c := New("http://127.0.0.1:0", t.TempDir())
	doc := c.Load(context.Background())
	if doc.Site.Title != "EcoSupply" {
		t.Fatalf("expected default shell, got %q", doc.Site.Title)
	}
}

func TestSaveWritesCacheBeforeRemote(t *testing.T) {
	backend := newFakeBackend()
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	dir := t.TempDir()
	c := New(server.URL, dir)
	cred := &Credential{Secret: "55"}

	doc := site.Default()
	doc.Site.Title = "Lokal zuerst"
	if ok := c.Save(context.Background(), doc, cred); !ok {
		t.Fatalf("expected save to succeed")
	}

	// The cache holds the saved document even with the backend gone.
	backend.mu.Lock()
	backend.failGets = true
	backend.mu.Unlock()
	if got := c.Load(context.Background()); got.Site.Title != "Lokal zuerst" {
		t.Fatalf("expected cache to hold the saved document, got %q", got.Site.Title)
	}
}

func TestSaveRemoteFailureKeepsLocalAndQueues(t *testing.T) {
	backend := newFakeBackend()
	backend.failPuts = true
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	c := New(server.URL, t.TempDir())
	cred := &Credential{Secret: "55"}

	doc := site.Default()
	doc.Site.Title = "Offline-Änderung"
	if ok := c.Save(context.Background(), doc, cred); ok {
		t.Fatalf("expected save to report remote failure")
	}

	// Local copy survives the failed remote write.
	backend.mu.Lock()
	backend.failGets = true
	backend.mu.Unlock()
	if got := c.Load(context.Background()); got.Site.Title != "Offline-Änderung" {
		t.Fatalf("expected local copy to survive, got %q", got.Site.Title)
	}

	pending, err := c.Pending()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Status != StatusPending {
		t.Fatalf("expected one pending queue entry, got %+v", pending)
	}
}

func TestFlushReplaysQueueInOrder(t *testing.T) {
	backend := newFakeBackend()
	backend.failPuts = true
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	c := New(server.URL, t.TempDir())
	cred := &Credential{Secret: "55"}
	ctx := context.Background()

	first := site.Default()
	first.Site.Title = "Erste"
	second := site.Default()
	second.Site.Title = "Zweite"
	c.Save(ctx, first, cred)
	c.Save(ctx, second, cred)

	// Backend recovers; both writes replay in order.
	backend.mu.Lock()
	backend.failPuts = false
	backend.mu.Unlock()

	entries, err := c.Flush(ctx, cred)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	for _, e := range entries {
		if e.Status != StatusConfirmed {
			t.Fatalf("expected all entries confirmed, got %+v", entries)
		}
	}

	backend.mu.Lock()
	titles := make([]string, 0, len(backend.puts))
	for _, d := range backend.puts {
		titles = append(titles, d.Site.Title)
	}
	backend.mu.Unlock()
	if len(titles) != 2 || titles[0] != "Erste" || titles[1] != "Zweite" {
		t.Fatalf("expected ordered replay, got %v", titles)
	}

	pending, err := c.Pending()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty queue after flush, got %+v", pending)
	}
}

func TestFlushStopsAtFirstFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.failPuts = true
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	c := New(server.URL, t.TempDir())
	cred := &Credential{Secret: "55"}
	ctx := context.Background()

	first := site.Default()
	first.Site.Title = "Erste"
	second := site.Default()
	second.Site.Title = "Zweite"
	c.Save(ctx, first, cred)
	c.Save(ctx, second, cred)

	// Backend still down during flush.
	entries, err := c.Flush(ctx, cred)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if entries[0].Status != StatusFailed {
		t.Fatalf("expected first entry marked failed, got %+v", entries[0])
	}
	if entries[1].Status != StatusPending {
		t.Fatalf("later entries must stay pending after a failure, got %+v", entries[1])
	}
}

func TestFlushPartialFailureReportsEveryEntry(t *testing.T) {
	backend := newFakeBackend()
	backend.failPuts = true
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	c := New(server.URL, t.TempDir())
	cred := &Credential{Secret: "55"}
	ctx := context.Background()

	for _, title := range []string{"Erste", "Zweite", "Dritte"} {
		doc := site.Default()
		doc.Site.Title = title
		c.Save(ctx, doc, cred)
	}

	// Backend recovers but only has room for one write before going down
	// again: the first entry confirms, the second fails, the third is never
	// attempted.
	backend.mu.Lock()
	backend.failPuts = false
	backend.putLimit = 1
	backend.mu.Unlock()

	report, err := c.Flush(ctx, cred)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(report) != 3 {
		t.Fatalf("report must cover every entry, got %d: %+v", len(report), report)
	}
	if report[0].ID != 1 || report[0].Status != StatusConfirmed {
		t.Fatalf("expected entry 1 confirmed, got %+v", report[0])
	}
	if report[1].ID != 2 || report[1].Status != StatusFailed {
		t.Fatalf("expected entry 2 failed, got %+v", report[1])
	}
	if report[2].ID != 3 || report[2].Status != StatusPending {
		t.Fatalf("expected entry 3 untouched, got %+v", report[2])
	}

	// Only the confirmed entry leaves the queue.
	entries, err := c.readQueue()
	if err != nil {
		t.Fatalf("read queue: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != 2 || entries[1].ID != 3 {
		t.Fatalf("expected entries 2 and 3 kept, got %+v", entries)
	}
}

func TestFlushRetriesFailedEntryBeforeLater(t *testing.T) {
	backend := newFakeBackend()
	backend.failPuts = true
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	c := New(server.URL, t.TempDir())
	cred := &Credential{Secret: "55"}
	ctx := context.Background()

	first := site.Default()
	first.Site.Title = "Erste"
	second := site.Default()
	second.Site.Title = "Zweite"
	c.Save(ctx, first, cred)
	c.Save(ctx, second, cred)

	// First flush fails: entry 1 is marked failed, entry 2 stays pending.
	if _, err := c.Flush(ctx, cred); err != nil {
		t.Fatalf("first flush: %v", err)
	}

	// Backend recovers: the failed entry replays before the later one.
	backend.mu.Lock()
	backend.failPuts = false
	backend.mu.Unlock()

	report, err := c.Flush(ctx, cred)
	if err != nil {
		t.Fatalf("second flush: %v", err)
	}
	for _, e := range report {
		if e.Status != StatusConfirmed {
			t.Fatalf("expected all entries confirmed on retry, got %+v", report)
		}
	}

	backend.mu.Lock()
	titles := make([]string, 0, len(backend.puts))
	for _, d := range backend.puts {
		titles = append(titles, d.Site.Title)
	}
	backend.mu.Unlock()
	if len(titles) != 2 || titles[0] != "Erste" || titles[1] != "Zweite" {
		t.Fatalf("expected ordered replay with the failed entry first, got %v", titles)
	}
}

func TestResetClearsLocalStateOnly(t *testing.T) {
	backend := newFakeBackend()
	backend.doc.Site.Title = "Serverstand"
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	c := New(server.URL, t.TempDir())
	ctx := context.Background()
	c.Load(ctx)

	doc := site.Default()
	doc.Site.Title = "Lokal"
	c.Save(ctx, doc, &Credential{})

	if err := c.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	pending, err := c.Pending()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected queue cleared, got %+v", pending)
	}

	// Remote state is untouched.
	if got := c.Load(ctx); got.Site.Title != "Serverstand" {
		t.Fatalf("reset must not touch remote state, got %q", got.Site.Title)
	}
}

func TestCredentialExpiry(t *testing.T) {
	var nilCred *Credential
	if !nilCred.Expired() {
		t.Fatalf("nil credential must be expired")
	}

	empty := &Credential{}
	if !empty.Expired() {
		t.Fatalf("empty credential must be expired")
	}

	secret := &Credential{Secret: "55"}
	if secret.Expired() {
		t.Fatalf("bare secret credential never expires")
	}

	token := &Credential{Token: "t", ExpiresAt: time.Now().Add(time.Hour)}
	if token.Expired() {
		t.Fatalf("live token must not be expired")
	}

	stale := &Credential{Token: "t", ExpiresAt: time.Now().Add(-time.Hour)}
	if !stale.Expired() {
		t.Fatalf("past expiry must report expired")
	}

	stale.Clear()
	if stale.Token != "" || stale.Secret != "" {
		t.Fatalf("clear must drop both token and secret")
	}
}
