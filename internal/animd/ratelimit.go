package animd

import (
	"context"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/opencode-ai/animseq/internal/clock"
)

// RateLimitConfig defines a token bucket for a method or for all methods.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustainable rate (tokens added per second).
	RequestsPerSecond float64

	// BurstSize is the maximum number of requests allowed in a burst.
	BurstSize int
}

// DefaultRateLimits holds the per-method limits.
var DefaultRateLimits = map[string]RateLimitConfig{
	// Producers: a human or a game loop pressing keys.
	MethodEnqueue: {RequestsPerSecond: 50, BurstSize: 100},

	// Reads
	MethodGetState:     {RequestsPerSecond: 100, BurstSize: 200},
	MethodListCommands: {RequestsPerSecond: 20, BurstSize: 40},
	MethodPing:         {RequestsPerSecond: 1000, BurstSize: 1000},

	// Streams are limited on creation only.
	MethodStreamEvents: {RequestsPerSecond: 5, BurstSize: 10},
}

type tokenBucket struct {
	mu           sync.Mutex
	clock        clock.Clock
	tokens       float64
	lastUpdate   time.Time
	ratePerSec   float64
	maxTokens    float64
	requestCount int64
	deniedCount  int64
}

func newTokenBucket(cfg RateLimitConfig, c clock.Clock) *tokenBucket {
	return &tokenBucket{
		clock:      c,
		tokens:     float64(cfg.BurstSize),
		lastUpdate: c.Now(),
		ratePerSec: cfg.RequestsPerSecond,
		maxTokens:  float64(cfg.BurstSize),
	}
}

// refillLocked tops up tokens for the time elapsed since the last update.
func (tb *tokenBucket) refillLocked() {
	now := tb.clock.Now()
	tb.tokens += now.Sub(tb.lastUpdate).Seconds() * tb.ratePerSec
	if tb.tokens > tb.maxTokens {
		tb.tokens = tb.maxTokens
	}
	tb.lastUpdate = now
}

func (tb *tokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.requestCount++
	tb.refillLocked()

	if tb.tokens >= 1.0 {
		tb.tokens--
		return true
	}

	tb.deniedCount++
	return false
}

func (tb *tokenBucket) stats() (available float64, requestCount, deniedCount int64) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()
	return tb.tokens, tb.requestCount, tb.deniedCount
}

// RateLimiter applies token buckets per method and, optionally, globally.
type RateLimiter struct {
	mu      sync.RWMutex
	clock   clock.Clock
	buckets map[string]*tokenBucket
	configs map[string]RateLimitConfig

	globalBucket *tokenBucket
	globalConfig *RateLimitConfig

	enabled bool
}

// RateLimiterOption configures the RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithMethodLimits sets custom limits for specific methods.
func WithMethodLimits(limits map[string]RateLimitConfig) RateLimiterOption {
	return func(rl *RateLimiter) {
		for method, cfg := range limits {
			rl.configs[method] = cfg
		}
	}
}

// WithGlobalLimit sets a limit shared by all methods.
func WithGlobalLimit(cfg RateLimitConfig) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.globalConfig = &cfg
	}
}

// WithEnabled enables or disables rate limiting.
func WithEnabled(enabled bool) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.enabled = enabled
	}
}

// WithRateClock replaces the clock used to refill buckets.
func WithRateClock(c clock.Clock) RateLimiterOption {
	return func(rl *RateLimiter) {
		if c != nil {
			rl.clock = c
		}
	}
}

// NewRateLimiter creates a rate limiter seeded with DefaultRateLimits.
func NewRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		clock:   clock.Real(),
		buckets: make(map[string]*tokenBucket),
		configs: make(map[string]RateLimitConfig),
		enabled: true,
	}

	for method, cfg := range DefaultRateLimits {
		rl.configs[method] = cfg
	}

	for _, opt := range opts {
		opt(rl)
	}

	if rl.globalConfig != nil {
		rl.globalBucket = newTokenBucket(*rl.globalConfig, rl.clock)
	}

	return rl
}

// Allow reports whether a request to method may proceed.
func (rl *RateLimiter) Allow(method string) bool {
	if !rl.IsEnabled() {
		return true
	}

	if rl.globalBucket != nil && !rl.globalBucket.allow() {
		return false
	}

	bucket := rl.getBucket(method)
	if bucket == nil {
		return true
	}
	return bucket.allow()
}

func (rl *RateLimiter) getBucket(method string) *tokenBucket {
	rl.mu.RLock()
	bucket, exists := rl.buckets[method]
	rl.mu.RUnlock()

	if exists {
		return bucket
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if bucket, exists = rl.buckets[method]; exists {
		return bucket
	}

	cfg, hasCfg := rl.configs[method]
	if !hasCfg {
		return nil
	}

	bucket = newTokenBucket(cfg, rl.clock)
	rl.buckets[method] = bucket
	return bucket
}

// MethodStats reports usage of one bucket.
type MethodStats struct {
	Method           string
	Available        float64
	RequestsPerSec   float64
	BurstSize        int
	TotalRequests    int64
	DeniedRequests   int64
	DeniedPercentage float64
}

// Stats returns statistics for all configured methods, sorted by method.
func (rl *RateLimiter) Stats() []MethodStats {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	stats := make([]MethodStats, 0, len(rl.configs))
	for method, cfg := range rl.configs {
		ms := MethodStats{
			Method:         method,
			RequestsPerSec: cfg.RequestsPerSecond,
			BurstSize:      cfg.BurstSize,
			Available:      float64(cfg.BurstSize),
		}
		if bucket, exists := rl.buckets[method]; exists {
			ms.Available, ms.TotalRequests, ms.DeniedRequests = bucket.stats()
			ms.DeniedPercentage = deniedPercentage(ms.TotalRequests, ms.DeniedRequests)
		}
		stats = append(stats, ms)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Method < stats[j].Method
	})
	return stats
}

// GlobalStats returns statistics for the global limit, or nil without one.
func (rl *RateLimiter) GlobalStats() *MethodStats {
	if rl.globalBucket == nil || rl.globalConfig == nil {
		return nil
	}

	available, total, denied := rl.globalBucket.stats()
	return &MethodStats{
		Method:           "global",
		Available:        available,
		RequestsPerSec:   rl.globalConfig.RequestsPerSecond,
		BurstSize:        rl.globalConfig.BurstSize,
		TotalRequests:    total,
		DeniedRequests:   denied,
		DeniedPercentage: deniedPercentage(total, denied),
	}
}

func deniedPercentage(total, denied int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(denied) / float64(total) * 100
}

// SetEnabled enables or disables rate limiting at runtime.
func (rl *RateLimiter) SetEnabled(enabled bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.enabled = enabled
}

// IsEnabled returns whether rate limiting is currently enabled.
func (rl *RateLimiter) IsEnabled() bool {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.enabled
}

// UnaryServerInterceptor rejects unary calls over the limit with ResourceExhausted.
func (rl *RateLimiter) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if !rl.Allow(info.FullMethod) {
			return nil, status.Errorf(codes.ResourceExhausted,
				"rate limit exceeded for method %s", info.FullMethod)
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor limits the rate of stream creation.
func (rl *RateLimiter) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if !rl.Allow(info.FullMethod) {
			return status.Errorf(codes.ResourceExhausted,
				"rate limit exceeded for stream %s", info.FullMethod)
		}
		return handler(srv, ss)
	}
}
