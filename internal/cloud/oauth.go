package cloud

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strings"
)

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomToken returns n random characters drawn from a URL-safe
// alphanumeric alphabet.
func randomToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic("cloud: crypto/rand unavailable: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(buf)
}

// sanitizeToken makes a generated value URL-safe: '+' and '/' become
// '-' and '_', and padding is stripped.
func sanitizeToken(s string) string {
	s = strings.ReplaceAll(s, "+", "-")
	s = strings.ReplaceAll(s, "/", "_")
	return strings.ReplaceAll(s, "=", "")
}

// InitOAuthSync seeds the PKCE material for a new connection: a code
// verifier, the SHA-256 challenge derived from it, a state value, and
// the local token identifying this site. It is a no-op while a
// verified connection exists or a challenge is already outstanding, so
// repeated calls cannot clobber an in-flight authorization.
func (s *Service) InitOAuthSync(ctx context.Context) error {
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return err
	}
	if settings.TokenVerified || settings.CodeVerifier != "" {
		return nil
	}

	verifier := sanitizeToken(randomToken(128))
	digest := sha256.Sum256([]byte(verifier))
	challenge := sanitizeToken(base64.StdEncoding.EncodeToString(digest[:]))

	return s.updateSettings(ctx, func(settings *Settings) {
		settings.CodeVerifier = verifier
		settings.CodeChallenge = challenge
		settings.State = randomToken(15)
		settings.LocalToken = randomToken(30)
	})
}

// ConnectURL builds the authorize URL the user agent is redirected to.
// The user authenticates on the cloud side and is sent back to the
// callback with a code and the state issued here.
func (s *Service) ConnectURL(ctx context.Context) (string, error) {
	if err := s.InitOAuthSync(ctx); err != nil {
		return "", err
	}
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", s.clientID(ctx))
	params.Set("code_challenge", settings.CodeChallenge)
	params.Set("state", settings.State)
	params.Set("callback_url", s.callbackURL)

	return s.webURL + "oauth/login?" + params.Encode(), nil
}

// DecodeAuthCode exchanges the authorization code for a bearer token.
// The state comparison is the CSRF defense for the flow and happens
// before any network traffic. A nil return means the connection is
// established and verified.
func (s *Service) DecodeAuthCode(ctx context.Context, state, authCode string) *Error {
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return wrapError(ErrTransport, "failed to load cloud settings", err)
	}

	if settings.State == "" || settings.State != state {
		return newError(ErrState, "Did not receive a valid state from the cloud platform. Please try again.")
	}

	token, cerr := s.client.ExchangeToken(ctx, authCode, s.clientID(ctx), settings.CodeVerifier, settings.LocalToken)
	if cerr != nil {
		return cerr
	}

	if err := s.updateSettings(ctx, func(settings *Settings) {
		settings.CloudToken = token
		settings.TokenVerified = true
	}); err != nil {
		return wrapError(ErrTransport, "failed to persist cloud token", err)
	}
	return nil
}

// EstablishNewCloudConnection verifies the stored token against the
// legacy syncandverify endpoint. The remote side reports the missing
// codevault case only as message text, so that outcome is detected
// here and surfaced as a business error.
func (s *Service) EstablishNewCloudConnection(ctx context.Context) *Error {
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return wrapError(ErrTransport, "failed to load cloud settings", err)
	}

	verified, cerr := s.client.SyncAndVerify(ctx, settings.LocalToken, s.siteHost)
	if cerr != nil {
		return cerr
	}

	switch verified.SyncStatus {
	case "success":
		return nil
	case "error":
		if isNoCodevaultMessage(verified.Message) {
			return newError(ErrBusiness, "no_codevault")
		}
		return newError(ErrBusiness, verified.Message)
	default:
		return newError(ErrTransport, "There was an unknown error, please try again later.")
	}
}

// EnsureCloudConnectionAvailable reports whether sync operations can
// run, re-verifying through the legacy path when a key exists but the
// connection has lapsed. The redirect slug tells the caller which
// screen to land on.
func (s *Service) EnsureCloudConnectionAvailable(ctx context.Context) ConnectionResult {
	if s.IsConnectionAvailable(ctx) {
		return ConnectionResult{Success: true, RedirectSlug: "success"}
	}

	if !s.IsKeyVerified(ctx) {
		return ConnectionResult{Success: false, RedirectSlug: "not-connected"}
	}

	if cerr := s.EstablishNewCloudConnection(ctx); cerr != nil {
		if cerr.Kind == ErrBusiness && cerr.Message == "no_codevault" {
			return ConnectionResult{Success: false, RedirectSlug: "no-codevault"}
		}
		return ConnectionResult{Success: false, RedirectSlug: "invalid", Message: cerr.Message}
	}

	if err := s.updateSettings(ctx, func(settings *Settings) {
		settings.TokenVerified = true
	}); err != nil {
		return ConnectionResult{Success: false, RedirectSlug: "invalid", Message: err.Error()}
	}
	return ConnectionResult{Success: true, RedirectSlug: "success"}
}

// RemoveSync disconnects from the cloud. Every settings field is
// zeroed and the caches dropped; local snippet records are untouched.
func (s *Service) RemoveSync(ctx context.Context) error {
	if err := s.updateSettings(ctx, func(settings *Settings) {
		*settings = Settings{}
	}); err != nil {
		return err
	}
	s.InvalidateCaches(ctx)
	return nil
}
