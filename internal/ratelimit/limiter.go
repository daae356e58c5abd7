package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter over Redis. The window starts on
// the first hit for a key and expires on its own, so idle keys cost
// nothing. A nil Client allows everything, which keeps single-node and
// test setups free of a Redis dependency.
type Limiter struct {
	Client *redis.Client
	Prefix string
	Limit  int
	Window time.Duration
}

const (
	defaultLimit  = 30
	defaultWindow = time.Minute
)

// Counting and expiry setting have to be one atomic step, otherwise a
// crash between INCR and PEXPIRE leaves a counter that never resets.
var allowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
local ttl = redis.call("PTTL", KEYS[1])
if current > tonumber(ARGV[1]) then
  return {0, ttl}
end
return {1, ttl}
`)

var errBadReply = errors.New("ratelimit: unexpected script reply")

// Allow records one hit against key and reports whether it stays under
// the limit. The returned duration is how long until the current
// window resets, which callers surface as Retry-After.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if l.Client == nil {
		return true, 0, nil
	}

	limit := l.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	window := l.Window
	if window <= 0 {
		window = defaultWindow
	}

	res, err := allowScript.Run(ctx, l.Client, []string{l.Prefix + key}, limit, window.Milliseconds()).Result()
	if err != nil {
		return false, 0, err
	}

	values, ok := res.([]any)
	if !ok || len(values) != 2 {
		return false, 0, errBadReply
	}
	allowed, _ := values[0].(int64)
	ttlMs, _ := values[1].(int64)

	return allowed == 1, time.Duration(ttlMs) * time.Millisecond, nil
}
