package apikeys

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/snipvault/snipvault/internal"
)

var ErrNotFound = errors.New("api key not found")

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrNotFound)
}

type Scope string

const (
	ScopeRead      Scope = "read"
	ScopeReadWrite Scope = "read_write"
	ScopeAdmin     Scope = "admin"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeRead, ScopeReadWrite, ScopeAdmin:
		return true
	}
	return false
}

// CanWrite reports whether the scope allows mutating requests.
func (s Scope) CanWrite() bool {
	return s == ScopeReadWrite || s == ScopeAdmin
}

// Key is a stored API key. The raw token is only ever returned once,
// at creation; afterwards only its hash and display prefix remain.
type Key struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Scope       Scope      `json:"scope"`
	TokenHash   string     `json:"-"`
	TokenPrefix string     `json:"token_prefix"`
	CreatedAt   time.Time  `json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

func (k *Key) Revoked() bool {
	return k.RevokedAt != nil
}

func GenerateToken() string {
	return "svk_" + internal.RandomHex(24)
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokenPrefix keeps enough of the token for users to recognise it in
// a listing without exposing the secret.
func TokenPrefix(token string) string {
	if len(token) <= 10 {
		return token
	}
	return token[:10]
}
