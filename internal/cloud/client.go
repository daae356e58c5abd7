package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/snipvault/snipvault/internal/telemetry"
)

// DefaultAPIURL is the production cloud API base.
const DefaultAPIURL = "https://codesnippets.cloud/api/v1/"

// TokenFunc supplies the bearer and local tokens attached to
// authenticated requests. It is read on every call so a token refresh
// takes effect immediately.
type TokenFunc func(ctx context.Context) (cloudToken, localToken string)

// Client is a thin typed layer over the remote cloud API. It reports
// failures as *Error values; it never panics on malformed responses.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenFunc
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// SetTokens installs the token source. Separate from the constructor
// because the settings service that owns the tokens also owns the
// client.
func (c *Client) SetTokens(tokens TokenFunc) {
	c.tokens = tokens
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, authed bool) (int, []byte, *Error) {
	ctx, span := telemetry.StartSpan(ctx, "cloud "+method+" "+path)
	defer span.End()

	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, wrapError(ErrTransport, "failed to build cloud request", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	if authed && c.tokens != nil {
		cloudToken, localToken := c.tokens(ctx)
		req.Header.Set("Authorization", "Bearer "+cloudToken)
		req.Header.Set("Local-Token", localToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, wrapError(ErrTransport, "cloud request failed", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, wrapError(ErrTransport, "failed to read cloud response", err)
	}
	return resp.StatusCode, raw, nil
}

func (c *Client) getJSON(ctx context.Context, path string, authed bool, out any) *Error {
	status, raw, cerr := c.do(ctx, http.MethodGet, path, nil, authed)
	if cerr != nil {
		return cerr
	}
	return decodeResponse(status, raw, out)
}

func (c *Client) postFormJSON(ctx context.Context, path string, form url.Values, out any) *Error {
	status, raw, cerr := c.do(ctx, http.MethodPost, path, form, true)
	if cerr != nil {
		return cerr
	}
	return decodeResponse(status, raw, out)
}

func decodeResponse(status int, raw []byte, out any) *Error {
	if status == http.StatusUnauthorized {
		return newError(ErrAuth, "That token is invalid - please check and try again.")
	}
	if status < 200 || status >= 300 {
		return newError(ErrTransport, fmt.Sprintf("cloud request failed with status %d", status))
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return wrapError(ErrTransport, "failed to decode cloud response", err)
	}
	return nil
}

type verifyResponse struct {
	SyncStatus string `json:"sync_status"`
	Message    string `json:"message"`
}

// SyncAndVerify runs the legacy token verification handshake.
func (c *Client) SyncAndVerify(ctx context.Context, siteToken, siteHost string) (*verifyResponse, *Error) {
	form := url.Values{}
	form.Set("site_token", siteToken)
	form.Set("site_host", siteHost)

	status, raw, cerr := c.do(ctx, http.MethodPost, "private/syncandverify", form, true)
	if cerr != nil {
		return nil, cerr
	}
	if status == http.StatusUnauthorized {
		return nil, newError(ErrAuth, "That token is invalid - please check and try again.")
	}
	if status != http.StatusOK {
		return nil, newError(ErrTransport, "There was an error connecting to the cloud platform. Please try again later.")
	}

	var out verifyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, wrapError(ErrTransport, "failed to decode cloud response", err)
	}
	return &out, nil
}

// ExchangeToken trades an authorisation code for a bearer token.
func (c *Client) ExchangeToken(ctx context.Context, code, clientID, codeVerifier, localToken string) (string, *Error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", clientID)
	form.Set("grant_type", "authorization_code")
	form.Set("code_verifier", codeVerifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"auth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", wrapError(ErrTransport, "failed to build cloud request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Local-Token", localToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", wrapError(ErrTransport, "cloud request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wrapError(ErrTransport, "failed to read cloud response", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return "", newError(ErrAuth, "That token is invalid - please check and try again.")
	}

	var data struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(raw, &data)

	if data.Token == "" || resp.StatusCode != http.StatusOK {
		return "", newError(ErrTransport, "There was an error connecting to the cloud platform. Please try again later.")
	}
	return data.Token, nil
}

type snippetPageWire struct {
	Snippets   []Snippet      `json:"snippets"`
	CloudIDRev map[string]int `json:"cloud_id_rev"`
	TotalPages int            `json:"total_pages"`
	Total      int            `json:"total_snippets"`
}

func (w *snippetPageWire) toPage(page int) *SnippetPage {
	out := &SnippetPage{
		Snippets:   w.Snippets,
		CloudIDRev: make(map[int64]int, len(w.CloudIDRev)),
		Page:       page,
		TotalPages: w.TotalPages,
		Total:      w.Total,
	}
	for key, rev := range w.CloudIDRev {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		out.CloudIDRev[id] = rev
	}
	return out
}

// CodevaultSnippets fetches one page of the connected codevault.
func (c *Client) CodevaultSnippets(ctx context.Context, page int) (*SnippetPage, *Error) {
	var wire snippetPageWire
	if err := c.getJSON(ctx, "private/allsnippets?page="+strconv.Itoa(page), true, &wire); err != nil {
		return nil, err
	}
	if wire.Snippets == nil {
		return nil, newError(ErrTransport, "cloud response missing snippets")
	}
	return wire.toPage(page), nil
}

// Search queries the public search endpoint. Method selects between
// codevault-name and keyword search.
func (c *Client) Search(ctx context.Context, method, query string, page int, siteToken, siteHost string) (*SnippetPage, *Error) {
	params := url.Values{}
	params.Set("s_method", method)
	params.Set("s", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("site_token", siteToken)
	params.Set("site_host", siteHost)

	var wire snippetPageWire
	if err := c.getJSON(ctx, "public/search?"+params.Encode(), false, &wire); err != nil {
		return nil, err
	}
	return wire.toPage(page), nil
}

type StoreSnippetRequest struct {
	Name     string
	Desc     string
	Code     string
	Scope    string
	Revision int
}

type StoreSnippetResponse struct {
	CloudID  json.Number `json:"cloud_id"`
	Revision int         `json:"revision"`
}

// StoreSnippet uploads a new snippet to the codevault.
func (c *Client) StoreSnippet(ctx context.Context, req StoreSnippetRequest) (*StoreSnippetResponse, *Error) {
	form := url.Values{}
	form.Set("name", req.Name)
	form.Set("desc", req.Desc)
	form.Set("code", req.Code)
	form.Set("scope", req.Scope)
	form.Set("revision", strconv.Itoa(req.Revision))

	var out StoreSnippetResponse
	if err := c.postFormJSON(ctx, "private/storesnippet", form, &out); err != nil {
		return nil, err
	}
	if out.CloudID.String() == "" {
		return nil, newError(ErrTransport, "cloud response missing cloud_id")
	}
	return &out, nil
}

type UpdateSnippetRequest struct {
	Name     string
	Desc     string
	Code     string
	Revision int
	LocalID  int64
}

// UpdateSnippet pushes new content for an already stored snippet.
// The returned flag reports whether the remote side accepted it.
func (c *Client) UpdateSnippet(ctx context.Context, cloudID int64, req UpdateSnippetRequest) (bool, *Error) {
	form := url.Values{}
	form.Set("name", req.Name)
	form.Set("desc", req.Desc)
	form.Set("code", req.Code)
	form.Set("revision", strconv.Itoa(req.Revision))
	form.Set("local_id", strconv.FormatInt(req.LocalID, 10))

	var out struct {
		Success bool `json:"success"`
	}
	if err := c.postFormJSON(ctx, "private/updatesnippet/"+strconv.FormatInt(cloudID, 10), form, &out); err != nil {
		return false, err
	}
	return out.Success, nil
}

// GetSnippet fetches a single public snippet by cloud id.
func (c *Client) GetSnippet(ctx context.Context, cloudID int64) (*Snippet, *Error) {
	var out struct {
		Snippet *Snippet `json:"snippet"`
	}
	if err := c.getJSON(ctx, "public/getsnippet/"+strconv.FormatInt(cloudID, 10), false, &out); err != nil {
		return nil, err
	}
	if out.Snippet == nil {
		return nil, newError(ErrTransport, "cloud response missing snippet")
	}
	return out.Snippet, nil
}

// GetSnippetRevision fetches only the current revision of a snippet.
func (c *Client) GetSnippetRevision(ctx context.Context, cloudID int64) (int, *Error) {
	var out struct {
		Revision json.Number `json:"snippet_revision"`
	}
	if err := c.getJSON(ctx, "public/getsnippetrevision/"+strconv.FormatInt(cloudID, 10), false, &out); err != nil {
		return 0, err
	}
	rev, err := strconv.Atoi(out.Revision.String())
	if err != nil {
		return 0, newError(ErrTransport, "cloud response missing snippet_revision")
	}
	return rev, nil
}

// Bundles lists the bundles owned by the connected account.
func (c *Client) Bundles(ctx context.Context) ([]Bundle, *Error) {
	var out struct {
		Bundles []Bundle `json:"bundles"`
	}
	if err := c.getJSON(ctx, "private/bundles", true, &out); err != nil {
		return nil, err
	}
	return out.Bundles, nil
}

// BundleSnippets fetches the snippets in one of the account's bundles.
func (c *Client) BundleSnippets(ctx context.Context, bundleID int64) (*SnippetPage, *Error) {
	var wire snippetPageWire
	if err := c.postFormJSON(ctx, "private/getbundle/"+strconv.FormatInt(bundleID, 10), nil, &wire); err != nil {
		return nil, err
	}
	return wire.toPage(1), nil
}

// SharedBundleSnippets fetches a bundle shared by another account.
func (c *Client) SharedBundleSnippets(ctx context.Context, shareName string) (*SnippetPage, *Error) {
	var wire snippetPageWire
	path := "private/getsharedbundle?share_name=" + url.QueryEscape(shareName)
	if err := c.postFormJSON(ctx, path, nil, &wire); err != nil {
		return nil, err
	}
	return wire.toPage(1), nil
}

// SetSyncedList tells the remote side which cloud ids are currently
// synced to this site. Callers treat it as best-effort telemetry.
func (c *Client) SetSyncedList(ctx context.Context, cloudIDs []int64) *Error {
	encoded, err := json.Marshal(cloudIDs)
	if err != nil {
		return wrapError(ErrTransport, "failed to encode synced list", err)
	}
	form := url.Values{}
	form.Set("cloud_id_array", string(encoded))
	return c.postFormJSON(ctx, "private/setsyncedsnippetlist", form, nil)
}
