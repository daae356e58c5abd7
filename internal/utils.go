package internal

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"log"
	"os"
	"strings"
)

var ErrNotFound = errors.New("not found")

func Env(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("missing env: %s", key)
	}
	return v
}

func RandomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("random source unavailable: %v", err)
	}
	return hex.EncodeToString(buf)
}

// RandomURLSafe returns n random bytes encoded without padding or
// characters that need escaping in query strings.
func RandomURLSafe(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("random source unavailable: %v", err)
	}
	return strings.TrimRight(base64.URLEncoding.EncodeToString(buf), "=")
}
