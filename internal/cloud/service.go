package cloud

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/snipvault/snipvault/internal/cache"
	"github.com/snipvault/snipvault/internal/snippets"
	"github.com/snipvault/snipvault/internal/telemetry"
)

const (
	linkMapCacheKey   = "cs_local_to_cloud_map"
	codevaultCacheKey = "cs_codevault_snippets"

	// cacheExpiry bounds both ephemeral cache entries.
	cacheExpiry = 24 * time.Hour
)

// SnippetStore is the slice of the local snippet repository the cloud
// service depends on.
type SnippetStore interface {
	List(ctx context.Context) ([]*snippets.Snippet, error)
	Save(ctx context.Context, s *snippets.Snippet) error
	GetByID(ctx context.Context, id int64) (*snippets.Snippet, error)
	GetByCloudID(ctx context.Context, cloudID string) (*snippets.Snippet, error)
	UpdateFields(ctx context.Context, id int64, f snippets.Fields) error
}

// Config carries the site-level knobs for the cloud connection.
type Config struct {
	// SiteHost identifies this installation to the cloud side. Combined
	// with the local token it forms the OAuth client id.
	SiteHost string
	// APIURL overrides the cloud API base. Empty selects production.
	APIURL string
	// WebURL is the cloud web base used for the authorize redirect.
	// Empty derives it from APIURL, or falls back to production.
	WebURL string
	// CallbackURL is where the authorize flow returns the user agent.
	CallbackURL string
	// HTTPClient, when set, replaces the default client.
	HTTPClient *http.Client
}

// Service owns the cloud connection state, the link reconciler and the
// sync operations. All of its caches are instance fields; construct one
// value per process and share it.
type Service struct {
	client   *Client
	store    SnippetStore
	settings SettingsStore
	cache    cache.Store

	siteHost    string
	webURL      string
	callbackURL string

	// mu guards the in-memory caches and serialises the
	// read-modify-write on the persisted link map.
	mu        sync.Mutex
	links     []Link
	codevault *SnippetPage

	// settingsMu guards current separately: the client's token
	// callback reads settings while mu is held.
	settingsMu sync.Mutex
	current    *Settings
}

func NewService(store SnippetStore, settingsStore SettingsStore, cacheStore cache.Store, cfg Config) *Service {
	webURL := cfg.WebURL
	if webURL == "" {
		webURL = strings.TrimSuffix(cfg.APIURL, "api/v1/")
	}
	if webURL == "" {
		webURL = "https://codesnippets.cloud/"
	}
	if !strings.HasSuffix(webURL, "/") {
		webURL += "/"
	}

	s := &Service{
		client:      NewClient(cfg.APIURL, cfg.HTTPClient),
		store:       store,
		settings:    settingsStore,
		cache:       cacheStore,
		siteHost:    cfg.SiteHost,
		webURL:      webURL,
		callbackURL: cfg.CallbackURL,
	}
	s.client.SetTokens(s.tokens)
	return s
}

// Client exposes the underlying API client for callers that need raw
// endpoint access, such as the AI passthrough.
func (s *Service) Client() *Client {
	return s.client
}

func (s *Service) tokens(ctx context.Context) (cloudToken, localToken string) {
	settings, err := s.loadSettings(ctx)
	if err != nil {
		telemetry.LogError(ctx, "failed to load cloud settings", telemetry.LogString("error", err.Error()))
		return "", ""
	}
	return settings.CloudToken, settings.LocalToken
}

// loadSettings returns the connection record, reading it from the
// durable store once and keeping it on the instance afterwards.
func (s *Service) loadSettings(ctx context.Context) (*Settings, error) {
	s.settingsMu.Lock()
	cached := s.current
	s.settingsMu.Unlock()
	if cached != nil {
		return cached, nil
	}

	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}

	s.settingsMu.Lock()
	s.current = settings
	s.settingsMu.Unlock()
	return settings, nil
}

// updateSettings applies mutate to a copy of the current settings,
// persists the result and swaps the in-memory record.
func (s *Service) updateSettings(ctx context.Context, mutate func(*Settings)) error {
	current, err := s.loadSettings(ctx)
	if err != nil {
		return err
	}

	next := *current
	mutate(&next)

	if err := s.settings.Save(ctx, &next); err != nil {
		return err
	}

	s.settingsMu.Lock()
	s.current = &next
	s.settingsMu.Unlock()
	return nil
}

// IsKeyVerified reports whether the stored token passed verification.
func (s *Service) IsKeyVerified(ctx context.Context) bool {
	settings, err := s.loadSettings(ctx)
	return err == nil && settings.TokenVerified
}

// IsConnectionAvailable reports whether a token exists and is verified.
// Every sync operation requires this.
func (s *Service) IsConnectionAvailable(ctx context.Context) bool {
	settings, err := s.loadSettings(ctx)
	return err == nil && settings.CloudToken != "" && settings.TokenVerified
}

// LocalToken returns the site token identifying this installation.
func (s *Service) LocalToken(ctx context.Context) string {
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return ""
	}
	return settings.LocalToken
}

// SiteHost returns the configured host name of this installation.
func (s *Service) SiteHost() string {
	return s.siteHost
}

func (s *Service) clientID(ctx context.Context) string {
	return s.siteHost + "-" + s.LocalToken(ctx)
}
