package app

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ecosupply/api/internal/config"
	"ecosupply/api/internal/guard"
	"ecosupply/api/internal/search"
	"ecosupply/api/internal/session"
	"ecosupply/api/internal/site"
	"ecosupply/api/internal/store"
)

type fakeStore struct {
	readFn  func(ctx context.Context) (site.Document, store.Revision, error)
	writeFn func(ctx context.Context, doc site.Document, expected store.Revision) (store.Revision, error)
	pingFn  func(ctx context.Context) error
}

func (f *fakeStore) Read(ctx context.Context) (site.Document, store.Revision, error) {
	if f.readFn != nil {
		return f.readFn(ctx)
	}
	return site.Default(), "rev-0", nil
}

func (f *fakeStore) Write(ctx context.Context, doc site.Document, expected store.Revision) (store.Revision, error) {
	if f.writeFn != nil {
		return f.writeFn(ctx, doc, expected)
	}
	return "rev-1", nil
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func newTestService(fs *fakeStore) *Service {
	cfg := config.Config{
		EditorPassword: "55",
		SessionTTL:     time.Hour,
	}
	return New(cfg, fs, guard.New("55", ""), session.NewMemoryStore(), search.NewService(nil), nil, nil)
}

func newTestServer(fs *fakeStore) *HTTPServer {
	return NewHTTPServer(newTestService(fs), "*", "testdata-no-such-dir")
}

func TestGetSiteReturnsDocumentAndETag(t *testing.T) {
	fs := &fakeStore{
		readFn: func(context.Context) (site.Document, store.Revision, error) {
			doc := site.Default()
			doc.Site.Title = "EcoSupply Test"
			return doc, "abc123", nil
		},
	}
	server := newTestServer(fs)

	req := httptest.NewRequest(http.MethodGet, "/api/site", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("ETag"); got != `"abc123"` {
		t.Fatalf("expected quoted revision ETag, got %q", got)
	}
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("expected Cache-Control no-store, got %q", got)
	}

	var doc site.Document
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if doc.Site.Title != "EcoSupply Test" {
		t.Fatalf("expected stored document, got %q", doc.Site.Title)
	}
}

func TestPutSiteWithoutSecretIsUnauthorized(t *testing.T) {
	server := newTestServer(&fakeStore{})

	body := `{"site":{"title":"X"},"tiles":[],"pages":{}}`
	req := httptest.NewRequest(http.MethodPut, "/api/site", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["code"] != "UNAUTHORIZED" {
		t.Fatalf("expected code UNAUTHORIZED, got %v", payload["code"])
	}
}

func TestPutSiteWrongSecretIsUnauthorized(t *testing.T) {
	server := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodPut, "/api/site", bytes.NewBufferString(`{"tiles":[],"pages":{}}`))
	req.Header.Set("x-editor-password", "wrong")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestPutSiteMissingTilesIsRejected(t *testing.T) {
	var wrote bool
	fs := &fakeStore{
		writeFn: func(context.Context, site.Document, store.Revision) (store.Revision, error) {
			wrote = true
			return "rev-1", nil
		},
	}
	server := newTestServer(fs)

	req := httptest.NewRequest(http.MethodPut, "/api/site", bytes.NewBufferString(`{"pages":{}}`))
	req.Header.Set("x-editor-password", "55")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["code"] != "VALIDATION_ERROR" {
		t.Fatalf("expected code VALIDATION_ERROR, got %v", payload["code"])
	}
	if payload["error"] != "tiles missing" {
		t.Fatalf("expected error 'tiles missing', got %v", payload["error"])
	}
	if wrote {
		t.Fatalf("rejected document must not reach the store")
	}
}

func TestPutSiteMissingPagesIsRejected(t *testing.T) {
	server := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodPut, "/api/site", bytes.NewBufferString(`{"tiles":[]}`))
	req.Header.Set("x-editor-password", "55")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var payload map[string]any
	json.Unmarshal(rr.Body.Bytes(), &payload)
	if payload["error"] != "pages missing" {
		t.Fatalf("expected error 'pages missing', got %v", payload["error"])
	}
}

func TestPutSiteInvalidJSONIsRejected(t *testing.T) {
	server := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodPut, "/api/site", bytes.NewBufferString(`{"tiles":`))
	req.Header.Set("x-editor-password", "55")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var payload map[string]any
	json.Unmarshal(rr.Body.Bytes(), &payload)
	if payload["code"] != "INVALID_BODY" {
		t.Fatalf("expected code INVALID_BODY, got %v", payload["code"])
	}
}

func TestPutSiteRoundTrip(t *testing.T) {
	var written site.Document
	fs := &fakeStore{
		writeFn: func(_ context.Context, doc site.Document, expected store.Revision) (store.Revision, error) {
			if expected != "" {
				t.Fatalf("unconditional write must carry no expected revision, got %q", expected)
			}
			written = doc
			return "rev-2", nil
		},
	}
	server := newTestServer(fs)

	body := `{"site":{"title":"Neu"},"tiles":[{"id":"banana","title":"Banane"}],"pages":{"banana":{"title":"Banane"}}}`
	req := httptest.NewRequest(http.MethodPut, "/api/site", bytes.NewBufferString(body))
	req.Header.Set("x-editor-password", "55")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["ok"] != true {
		t.Fatalf("expected ok true, got %v", payload["ok"])
	}
	if payload["revision"] != "rev-2" {
		t.Fatalf("expected new revision in response, got %v", payload["revision"])
	}

	// Normalization ran before the write.
	if written.Tiles[0].PageID != "banana" {
		t.Fatalf("expected normalized pageId, got %q", written.Tiles[0].PageID)
	}
	if written.Schema != site.SchemaVersion {
		t.Fatalf("expected schema version stamped, got %d", written.Schema)
	}
}

func TestPutSiteIfMatchMismatchConflicts(t *testing.T) {
	fs := &fakeStore{
		writeFn: func(_ context.Context, _ site.Document, expected store.Revision) (store.Revision, error) {
			if expected != "old-rev" {
				t.Fatalf("expected If-Match revision to reach the store, got %q", expected)
			}
			return "", store.ErrRevisionMismatch
		},
	}
	server := newTestServer(fs)

	req := httptest.NewRequest(http.MethodPut, "/api/site", bytes.NewBufferString(`{"tiles":[],"pages":{}}`))
	req.Header.Set("x-editor-password", "55")
	req.Header.Set("If-Match", `"old-rev"`)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	json.Unmarshal(rr.Body.Bytes(), &payload)
	if payload["code"] != "REVISION_MISMATCH" {
		t.Fatalf("expected code REVISION_MISMATCH, got %v", payload["code"])
	}
}

func TestPutSiteIfMatchWeakValidator(t *testing.T) {
	fs := &fakeStore{
		writeFn: func(_ context.Context, _ site.Document, expected store.Revision) (store.Revision, error) {
			if expected != "old-rev" {
				t.Fatalf("weak validator must be stripped to the bare revision, got %q", expected)
			}
			return "rev-3", nil
		},
	}
	server := newTestServer(fs)

	req := httptest.NewRequest(http.MethodPut, "/api/site", bytes.NewBufferString(`{"tiles":[],"pages":{}}`))
	req.Header.Set("x-editor-password", "55")
	req.Header.Set("If-Match", `W/"old-rev"`)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestReadFailureIsServerError(t *testing.T) {
	fs := &fakeStore{
		readFn: func(context.Context) (site.Document, store.Revision, error) {
			return site.Document{}, "", context.DeadlineExceeded
		},
	}
	server := newTestServer(fs)

	req := httptest.NewRequest(http.MethodGet, "/api/site", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var payload map[string]any
	json.Unmarshal(rr.Body.Bytes(), &payload)
	if payload["code"] != "SERVER_ERROR" {
		t.Fatalf("expected code SERVER_ERROR, got %v", payload["code"])
	}
}

func TestHealthAndReady(t *testing.T) {
	server := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from ready, got %d", rr.Code)
	}
}

func TestReadyReportsStorageFailure(t *testing.T) {
	fs := &fakeStore{
		pingFn: func(context.Context) error { return context.DeadlineExceeded },
	}
	server := newTestServer(fs)

	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestUnknownAPIRouteIs404(t *testing.T) {
	server := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestHistoryUnconfiguredIs503(t *testing.T) {
	server := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/site/history", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	json.Unmarshal(rr.Body.Bytes(), &payload)
	if payload["code"] != "HISTORY_UNAVAILABLE" {
		t.Fatalf("expected code HISTORY_UNAVAILABLE, got %v", payload["code"])
	}
}

func TestAssetUploadWithoutFileIs400(t *testing.T) {
	server := newTestServer(&fakeStore{})

	var body bytes.Buffer
	req := httptest.NewRequest(http.MethodPost, "/api/assets", &body)
	req.Header.Set("x-editor-password", "55")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing file field, got %d", rr.Code)
	}
}

func TestAssetUploadUnconfiguredIs503(t *testing.T) {
	server := newTestServer(&fakeStore{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "logo.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("not-really-a-png"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/assets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("x-editor-password", "55")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	json.Unmarshal(rr.Body.Bytes(), &payload)
	if payload["code"] != "ASSETS_UNAVAILABLE" {
		t.Fatalf("expected code ASSETS_UNAVAILABLE, got %v", payload["code"])
	}
}

func TestSearchEndpoint(t *testing.T) {
	fs := &fakeStore{}
	svc := newTestService(fs)
	doc := site.Default()
	doc.Tiles = []site.Tile{{ID: "banana", Title: "Banane", Origin: "Ecuador"}}
	svc.search.Index(doc)
	server := NewHTTPServer(svc, "*", "testdata-no-such-dir")

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=banane", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload struct {
		Results []map[string]any `json:"results"`
		Total   int              `json:"total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.Total != 1 || len(payload.Results) != 1 {
		t.Fatalf("expected one hit, got %+v", payload)
	}
	if payload.Results[0]["id"] != "tile-banana" {
		t.Fatalf("unexpected hit %+v", payload.Results[0])
	}
}

func TestOptionsPreflight(t *testing.T) {
	server := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodOptions, "/api/site", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected CORS origin header, got %q", got)
	}
}
