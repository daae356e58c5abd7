package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/snipvault/snipvault/internal/apikeys"
	"github.com/snipvault/snipvault/internal/identity"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*apikeys.Key, error)
}

// AuthMiddleware resolves the presented API key and records it on the
// request context. Read-only keys are rejected on mutating methods.
func AuthMiddleware(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authenticator == nil {
				http.Error(w, "auth not configured", http.StatusInternalServerError)
				return
			}

			token := apiKeyFromRequest(r)
			if token == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			key, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				writeAppError(w, err)
				return
			}

			if mutating(r.Method) && !key.Scope.CanWrite() {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := identity.WithKey(r.Context(), key.ID, string(key.Scope))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin guards key management endpoints.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !identity.IsAdmin(r.Context()) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AccessControlGate protects the cloud-initiated endpoints. The remote
// side proves it is talking to the right site by echoing the local
// token in the Access-Control header.
func AccessControlGate(localToken func(ctx context.Context) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := strings.TrimSpace(r.Header.Get("Access-Control"))
			expected := localToken(r.Context())
			if expected == "" || presented != expected {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

func apiKeyFromRequest(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-API-Key")); v != "" {
		return v
	}

	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return ""
	}
	parts := strings.Fields(auth)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
