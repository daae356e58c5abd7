package identity

import "context"

type ctxKey string

const (
	ctxKeyIDKey ctxKey = "key_id"
	ctxScopeKey ctxKey = "scope"
)

// WithKey records the authenticated API key on the request context.
func WithKey(ctx context.Context, keyID string, scope string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyIDKey, keyID)
	ctx = context.WithValue(ctx, ctxScopeKey, scope)
	return ctx
}

func KeyID(ctx context.Context) (string, bool) {
	v := ctx.Value(ctxKeyIDKey)
	id, ok := v.(string)
	return id, ok
}

func Scope(ctx context.Context) (string, bool) {
	v := ctx.Value(ctxScopeKey)
	scope, ok := v.(string)
	return scope, ok
}

func IsAdmin(ctx context.Context) bool {
	scope, _ := Scope(ctx)
	return scope == "admin"
}

func CanWrite(ctx context.Context) bool {
	scope, _ := Scope(ctx)
	return scope == "read_write" || scope == "admin"
}
