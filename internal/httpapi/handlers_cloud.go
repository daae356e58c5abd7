package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/snipvault/snipvault/internal/apperrors"
	"github.com/snipvault/snipvault/internal/cloud"
	"github.com/snipvault/snipvault/internal/snippets"
)

// CloudService is the slice of the cloud sync service the REST layer
// drives.
type CloudService interface {
	IsConnectionAvailable(ctx context.Context) bool
	IsKeyVerified(ctx context.Context) bool
	LocalToken(ctx context.Context) string
	ConnectURL(ctx context.Context) (string, error)
	DecodeAuthCode(ctx context.Context, state, authCode string) *cloud.Error
	EnsureCloudConnectionAvailable(ctx context.Context) cloud.ConnectionResult
	RemoveSync(ctx context.Context) error

	Links(ctx context.Context) ([]cloud.Link, error)
	CodevaultSnippets(ctx context.Context, page int) (*cloud.SnippetPage, error)
	Search(ctx context.Context, method, query string, page int) (*cloud.SnippetPage, error)

	StoreSnippetsInCloud(ctx context.Context, ids []int64) cloud.SyncResult
	UpdateSnippetsInCloud(ctx context.Context, ids []int64) cloud.SyncResult
	DownloadOrUpdateSnippet(ctx context.Context, cloudID int64, source, action string, page int) cloud.SyncResult
	RemoveSnippetsFromCloud(ctx context.Context, ids []int64) cloud.SyncResult
	CreateFromCloudPush(ctx context.Context, remote *cloud.Snippet) cloud.SyncResult

	Bundles(ctx context.Context) ([]cloud.Bundle, error)
	ImportBundle(ctx context.Context, bundleID int64, shareName string) cloud.SyncResult

	Prompt(ctx context.Context, prompt, snippetType string) (*cloud.AIResult, *cloud.Error)
	Explain(ctx context.Context, code, field string) (*cloud.AIResult, *cloud.Error)
}

type CloudHandler struct {
	Service CloudService
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeCloudError maps the cloud package's typed errors onto the REST
// error surface.
func writeCloudError(w http.ResponseWriter, cerr *cloud.Error) {
	kind := apperrors.KindUpstream
	switch cerr.Kind {
	case cloud.ErrAuth:
		kind = apperrors.KindUnauthorized
	case cloud.ErrState:
		kind = apperrors.KindInvalidInput
	case cloud.ErrBusiness:
		kind = apperrors.KindConflict
	}
	writeAppError(w, apperrors.New(kind, cerr.Message))
}

func (h *CloudHandler) Status(w http.ResponseWriter, r *http.Request) {
	type resp struct {
		Connected   bool `json:"connected"`
		KeyVerified bool `json:"key_verified"`
	}
	writeJSON(w, http.StatusOK, resp{
		Connected:   h.Service.IsConnectionAvailable(r.Context()),
		KeyVerified: h.Service.IsKeyVerified(r.Context()),
	})
}

// Connect sends the user agent to the cloud authorize page.
func (h *CloudHandler) Connect(w http.ResponseWriter, r *http.Request) {
	url, err := h.Service.ConnectURL(r.Context())
	if err != nil {
		writeAppError(w, apperrors.Wrap(apperrors.KindInternal, "failed to build authorize url", err))
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// Callback completes the OAuth flow with the state and code the cloud
// side redirects back with.
func (h *CloudHandler) Callback(w http.ResponseWriter, r *http.Request) {
	state := strings.TrimSpace(r.URL.Query().Get("state"))
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if state == "" || code == "" {
		http.Error(w, "state and code are required", http.StatusBadRequest)
		return
	}

	if cerr := h.Service.DecodeAuthCode(r.Context(), state, code); cerr != nil {
		writeCloudError(w, cerr)
		return
	}

	type resp struct {
		Connected bool `json:"connected"`
	}
	writeJSON(w, http.StatusOK, resp{Connected: true})
}

func (h *CloudHandler) Verify(w http.ResponseWriter, r *http.Request) {
	result := h.Service.EnsureCloudConnectionAvailable(r.Context())
	status := http.StatusOK
	if !result.Success {
		status = http.StatusConflict
	}
	writeJSON(w, status, result)
}

func (h *CloudHandler) RemoveSync(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.RemoveSync(r.Context()); err != nil {
		writeAppError(w, apperrors.Wrap(apperrors.KindInternal, "failed to remove cloud sync", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Push handles a cloud-initiated snippet delivery.
func (h *CloudHandler) Push(w http.ResponseWriter, r *http.Request) {
	var req CloudPushDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	revision := req.Revision
	if revision == 0 {
		revision = 1
	}
	result := h.Service.CreateFromCloudPush(r.Context(), &cloud.Snippet{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Code:        req.Code,
		Scope:       req.Scope,
		Revision:    revision,
	})
	if !result.Success {
		writeJSON(w, http.StatusBadGateway, result)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *CloudHandler) Links(w http.ResponseWriter, r *http.Request) {
	links, err := h.Service.Links(r.Context())
	if err != nil {
		writeAppError(w, apperrors.Wrap(apperrors.KindUpstream, "failed to build cloud link map", err))
		return
	}
	if links == nil {
		links = []cloud.Link{}
	}
	writeJSON(w, http.StatusOK, links)
}

func pageParam(r *http.Request) int {
	page := 1
	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			page = v
		}
	}
	return page
}

// remoteSnippetView adds the display fields the remote record only
// implies: the language a scope executes as and the status label.
type remoteSnippetView struct {
	cloud.Snippet
	Type       string `json:"type"`
	StatusName string `json:"status_name"`
}

type remotePageView struct {
	Snippets   []remoteSnippetView `json:"snippets"`
	Page       int                 `json:"page"`
	TotalPages int                 `json:"total_pages"`
	Total      int                 `json:"total_snippets"`
}

func remotePage(page *cloud.SnippetPage) remotePageView {
	view := remotePageView{
		Snippets:   make([]remoteSnippetView, 0, len(page.Snippets)),
		Page:       page.Page,
		TotalPages: page.TotalPages,
		Total:      page.Total,
	}
	for _, s := range page.Snippets {
		view.Snippets = append(view.Snippets, remoteSnippetView{
			Snippet:    s,
			Type:       snippets.Scope(s.Scope).Type(),
			StatusName: cloud.StatusName(s.Status),
		})
	}
	return view
}

func (h *CloudHandler) Codevault(w http.ResponseWriter, r *http.Request) {
	page, err := h.Service.CodevaultSnippets(r.Context(), pageParam(r))
	if err != nil {
		writeAppError(w, apperrors.Wrap(apperrors.KindUpstream, "failed to fetch codevault snippets", err))
		return
	}
	writeJSON(w, http.StatusOK, remotePage(page))
}

func (h *CloudHandler) Search(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimSpace(r.URL.Query().Get("s_method"))
	query := strings.TrimSpace(r.URL.Query().Get("s"))
	if method == "" || query == "" {
		http.Error(w, "s_method and s are required", http.StatusBadRequest)
		return
	}

	result, err := h.Service.Search(r.Context(), method, query, pageParam(r))
	if err != nil {
		writeAppError(w, apperrors.Wrap(apperrors.KindUpstream, "cloud search failed", err))
		return
	}
	writeJSON(w, http.StatusOK, remotePage(result))
}

func (h *CloudHandler) Bundles(w http.ResponseWriter, r *http.Request) {
	bundles, err := h.Service.Bundles(r.Context())
	if err != nil {
		writeAppError(w, apperrors.Wrap(apperrors.KindUpstream, "failed to list bundles", err))
		return
	}
	if bundles == nil {
		bundles = []cloud.Bundle{}
	}
	writeJSON(w, http.StatusOK, bundles)
}

func (h *CloudHandler) ImportBundle(w http.ResponseWriter, r *http.Request) {
	var req BundleImportDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := h.Service.ImportBundle(r.Context(), req.BundleID, req.ShareName)
	if !result.Success {
		writeJSON(w, http.StatusBadGateway, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *CloudHandler) AIPrompt(w http.ResponseWriter, r *http.Request) {
	var req AIPromptDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, cerr := h.Service.Prompt(r.Context(), req.Prompt, req.Type)
	if cerr != nil {
		writeCloudError(w, cerr)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *CloudHandler) AIExplain(w http.ResponseWriter, r *http.Request) {
	var req AIExplainDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, cerr := h.Service.Explain(r.Context(), req.Code, req.Field)
	if cerr != nil {
		writeCloudError(w, cerr)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
