package auth

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const rateLimitNamespace = "auth_rate_limits"

// BucketKind names one of the two rate-limit buckets.
type BucketKind string

const (
	// BucketAuth is the strict bucket applied to unauthenticated requests
	// against /admin/auth/* and to every authentication attempt.
	BucketAuth BucketKind = "auth"
	// BucketAPI is the loose bucket applied to already-authenticated
	// requests.
	BucketAPI BucketKind = "api"
)

type bucketLimits struct {
	max    int
	window time.Duration
}

var bucketConfig = map[BucketKind]bucketLimits{
	BucketAuth: {max: 10, window: 60 * time.Second},
	BucketAPI:  {max: 1000, window: 60 * time.Second},
}

// RateLimitResult reports the outcome of a rate-limit check.
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// rateLimiter is the in-memory fast path in front of the persisted bucket:
// a per-key golang.org/x/time/rate.Limiter, sized to the same threshold, so
// a hot key never has to round-trip storage on every single request.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newInMemoryLimiter() *rateLimiter {
	return &rateLimiter{limiters: make(map[string]*rate.Limiter)}
}

func (rl *rateLimiter) get(key string, kind BucketKind) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	limiter, ok := rl.limiters[key]
	if !ok {
		cfg := bucketConfig[kind]
		perSecond := float64(cfg.max) / cfg.window.Seconds()
		limiter = rate.NewLimiter(rate.Limit(perSecond), cfg.max)
		rl.limiters[key] = limiter
	}
	return limiter
}

func rateLimitRecordKey(kind BucketKind, identifier string) string {
	return sha256Hex(string(kind) + ":" + identifier)
}

// CheckRateLimit applies the fast-path in-memory limiter first (cheap,
// avoids a storage round trip for the overwhelming common case of "well
// under the limit"), then consults the persisted bucket in auth_rate_limits
// so the limit survives process restarts and is shared across replicas.
// Storage errors fail open: serving traffic is preferable to an outage
// caused by the rate limiter's own dependency failing.
func (b *Boundary) CheckRateLimit(ctx context.Context, kind BucketKind, identifier string) RateLimitResult {
	cfg := bucketConfig[kind]
	key := rateLimitRecordKey(kind, identifier)

	if !b.inMemory.get(key, kind).Allow() {
		return RateLimitResult{Allowed: false, Limit: cfg.max, RetryAfter: cfg.window}
	}

	record, found, err := b.storage.Get(ctx, rateLimitNamespace, key)
	if err != nil {
		return RateLimitResult{Allowed: true, Limit: cfg.max, Remaining: cfg.max}
	}

	now := time.Now()
	count := 1
	windowStart := now

	if found {
		prevCount, _ := record["count"].(float64)
		prevStartStr, _ := record["window_start"].(string)
		prevStart, parseErr := time.Parse(time.RFC3339Nano, prevStartStr)
		if parseErr == nil && now.Sub(prevStart) < cfg.window {
			if int(prevCount) >= cfg.max {
				retryAfter := cfg.window - now.Sub(prevStart)
				b.audit(ctx, "rate_limit_exceeded", identifier, false, map[string]interface{}{"bucket": string(kind)})
				return RateLimitResult{Allowed: false, Limit: cfg.max, RetryAfter: retryAfter}
			}
			count = int(prevCount) + 1
			windowStart = prevStart
		}
	}

	newRecord := map[string]interface{}{
		"count":         float64(count),
		"window_start":  windowStart.Format(time.RFC3339Nano),
		"last_attempt":  now.Format(time.RFC3339Nano),
	}
	if err := b.storage.Set(ctx, rateLimitNamespace, key, newRecord); err != nil {
		return RateLimitResult{Allowed: true, Limit: cfg.max, Remaining: cfg.max}
	}

	remaining := cfg.max - count
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{Allowed: true, Limit: cfg.max, Remaining: remaining}
}

// RetryAfterHeader formats d the way the Retry-After HTTP header expects:
// whole seconds, rounded up.
func RetryAfterHeader(d time.Duration) string {
	seconds := int(math.Ceil(d.Seconds()))
	if d > 0 && seconds == 0 {
		seconds = 1
	}
	return fmt.Sprintf("%d", seconds)
}
