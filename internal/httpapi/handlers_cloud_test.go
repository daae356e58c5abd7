package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/snipvault/snipvault/internal/cloud"
)

type cloudServiceStub struct {
	connected   bool
	keyVerified bool

	decodeAuthCodeFn func(ctx context.Context, state, authCode string) *cloud.Error
	downloadFn       func(ctx context.Context, cloudID int64, source, action string, page int) cloud.SyncResult
	storeFn          func(ctx context.Context, ids []int64) cloud.SyncResult
	promptFn         func(ctx context.Context, prompt, snippetType string) (*cloud.AIResult, *cloud.Error)
}

func (s *cloudServiceStub) IsConnectionAvailable(ctx context.Context) bool { return s.connected }
func (s *cloudServiceStub) IsKeyVerified(ctx context.Context) bool         { return s.keyVerified }
func (s *cloudServiceStub) LocalToken(ctx context.Context) string          { return "" }
func (s *cloudServiceStub) ConnectURL(ctx context.Context) (string, error) {
	return "https://codesnippets.cloud/oauth/login", nil
}

func (s *cloudServiceStub) DecodeAuthCode(ctx context.Context, state, authCode string) *cloud.Error {
	if s.decodeAuthCodeFn != nil {
		return s.decodeAuthCodeFn(ctx, state, authCode)
	}
	return nil
}

func (s *cloudServiceStub) EnsureCloudConnectionAvailable(ctx context.Context) cloud.ConnectionResult {
	return cloud.ConnectionResult{Success: s.connected}
}

func (s *cloudServiceStub) RemoveSync(ctx context.Context) error { return nil }

func (s *cloudServiceStub) Links(ctx context.Context) ([]cloud.Link, error) { return nil, nil }

func (s *cloudServiceStub) CodevaultSnippets(ctx context.Context, page int) (*cloud.SnippetPage, error) {
	return &cloud.SnippetPage{}, nil
}

func (s *cloudServiceStub) Search(ctx context.Context, method, query string, page int) (*cloud.SnippetPage, error) {
	return &cloud.SnippetPage{}, nil
}

func (s *cloudServiceStub) StoreSnippetsInCloud(ctx context.Context, ids []int64) cloud.SyncResult {
	if s.storeFn != nil {
		return s.storeFn(ctx, ids)
	}
	return cloud.SyncResult{Success: true, Action: "Uploaded"}
}

func (s *cloudServiceStub) UpdateSnippetsInCloud(ctx context.Context, ids []int64) cloud.SyncResult {
	return cloud.SyncResult{Success: true, Action: "Updated"}
}

func (s *cloudServiceStub) DownloadOrUpdateSnippet(ctx context.Context, cloudID int64, source, action string, page int) cloud.SyncResult {
	if s.downloadFn != nil {
		return s.downloadFn(ctx, cloudID, source, action, page)
	}
	return cloud.SyncResult{Success: true, Action: "Single Downloaded"}
}

func (s *cloudServiceStub) RemoveSnippetsFromCloud(ctx context.Context, ids []int64) cloud.SyncResult {
	return cloud.SyncResult{Success: true, Action: "Unsynced"}
}

func (s *cloudServiceStub) CreateFromCloudPush(ctx context.Context, remote *cloud.Snippet) cloud.SyncResult {
	return cloud.SyncResult{Success: true, Action: "Single Downloaded", SnippetID: 1}
}

func (s *cloudServiceStub) Bundles(ctx context.Context) ([]cloud.Bundle, error) { return nil, nil }

func (s *cloudServiceStub) ImportBundle(ctx context.Context, bundleID int64, shareName string) cloud.SyncResult {
	return cloud.SyncResult{Success: true, Action: "Downloaded"}
}

func (s *cloudServiceStub) Prompt(ctx context.Context, prompt, snippetType string) (*cloud.AIResult, *cloud.Error) {
	if s.promptFn != nil {
		return s.promptFn(ctx, prompt, snippetType)
	}
	return &cloud.AIResult{}, nil
}

func (s *cloudServiceStub) Explain(ctx context.Context, code, field string) (*cloud.AIResult, *cloud.Error) {
	return &cloud.AIResult{}, nil
}

func TestCallbackMissingParams(t *testing.T) {
	h := &CloudHandler{Service: &cloudServiceStub{}}

	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/v1/cloud/callback?code=abc", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCallbackStateMismatch(t *testing.T) {
	stub := &cloudServiceStub{
		decodeAuthCodeFn: func(ctx context.Context, state, authCode string) *cloud.Error {
			return &cloud.Error{Kind: cloud.ErrState, Message: "Did not receive a valid state from the cloud platform. Please try again."}
		},
	}
	h := &CloudHandler{Service: stub}

	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/v1/cloud/callback?state=wrong&code=abc", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "valid state") {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

func TestSyncRequiresConnection(t *testing.T) {
	h := &CloudHandler{Service: &cloudServiceStub{connected: false}}

	body := strings.NewReader(`{"snippet_ids":[1]}`)
	rec := httptest.NewRecorder()
	h.SyncUpload(rec, httptest.NewRequest(http.MethodPost, "/v1/cloud/sync/upload", body))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestSyncDownloadInvalidSource(t *testing.T) {
	stub := &cloudServiceStub{
		connected: true,
		downloadFn: func(ctx context.Context, cloudID int64, source, action string, page int) cloud.SyncResult {
			return cloud.SyncResult{Success: false, Error: "Invalid source."}
		},
	}
	h := &CloudHandler{Service: stub}

	body := strings.NewReader(`{"cloud_id":42,"source":"nowhere","action":"download"}`)
	rec := httptest.NewRecorder()
	h.SyncDownload(rec, httptest.NewRequest(http.MethodPost, "/v1/cloud/sync/download", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSyncDownloadDefaultsPage(t *testing.T) {
	var gotPage int
	stub := &cloudServiceStub{
		connected: true,
		downloadFn: func(ctx context.Context, cloudID int64, source, action string, page int) cloud.SyncResult {
			gotPage = page
			return cloud.SyncResult{Success: true, Action: "Single Downloaded", SnippetID: 7, LinkID: cloudID}
		},
	}
	h := &CloudHandler{Service: stub}

	body := strings.NewReader(`{"cloud_id":42,"source":"codevault","action":"download"}`)
	rec := httptest.NewRecorder()
	h.SyncDownload(rec, httptest.NewRequest(http.MethodPost, "/v1/cloud/sync/download", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotPage != 1 {
		t.Fatalf("expected page to default to 1, got %d", gotPage)
	}

	var result cloud.SyncResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.LinkID != 42 || result.SnippetID != 7 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAIPromptRejectsUnknownType(t *testing.T) {
	h := &CloudHandler{Service: &cloudServiceStub{keyVerified: true}}

	body := strings.NewReader(`{"prompt":"make a snippet","type":"ruby"}`)
	rec := httptest.NewRecorder()
	h.AIPrompt(rec, httptest.NewRequest(http.MethodPost, "/v1/cloud/ai/prompt", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAIPromptUnauthorized(t *testing.T) {
	stub := &cloudServiceStub{
		promptFn: func(ctx context.Context, prompt, snippetType string) (*cloud.AIResult, *cloud.Error) {
			return nil, &cloud.Error{Kind: cloud.ErrAuth, Message: "That token is invalid - please check and try again."}
		},
	}
	h := &CloudHandler{Service: stub}

	body := strings.NewReader(`{"prompt":"make a snippet","type":"php"}`)
	rec := httptest.NewRecorder()
	h.AIPrompt(rec, httptest.NewRequest(http.MethodPost, "/v1/cloud/ai/prompt", body))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
