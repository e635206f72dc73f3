package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Policy is a token bucket shape: MaxTokens burst, RefillRate tokens every RefillTime.
type Policy struct {
	MaxTokens  int
	RefillRate int
	RefillTime time.Duration
}

// DefaultPolicies throttles inbound chat events per user.
var DefaultPolicies = map[string]Policy{
	// 30 messages burst, then one every 2 seconds
	"send_message": {MaxTokens: 30, RefillRate: 1, RefillTime: 2 * time.Second},
	// accept/reject clicks
	"negotiate_price": {MaxTokens: 10, RefillRate: 1, RefillTime: 3 * time.Second},
	// keystroke driven; coalescing happens downstream
	"typing":            {MaxTokens: 60, RefillRate: 5, RefillTime: time.Second},
	"join_conversation": {MaxTokens: 20, RefillRate: 1, RefillTime: 3 * time.Second},
}

var defaultPolicy = Policy{MaxTokens: 20, RefillRate: 1, RefillTime: 3 * time.Second}

type TokenBucket struct {
	tokens     int
	maxTokens  int
	refillRate int
	refillTime time.Duration
	lastRefill time.Time
	lastUsed   time.Time
	mutex      sync.Mutex
}

// RateLimiter keeps one bucket per user and action.
type RateLimiter struct {
	policies map[string]Policy
	buckets  map[string]*TokenBucket
	mutex    sync.RWMutex
}

func NewRateLimiter(policies map[string]Policy) *RateLimiter {
	if policies == nil {
		policies = DefaultPolicies
	}
	return &RateLimiter{
		policies: policies,
		buckets:  make(map[string]*TokenBucket),
	}
}

func NewTokenBucket(p Policy) *TokenBucket {
	now := time.Now()
	return &TokenBucket{
		tokens:     p.MaxTokens,
		maxTokens:  p.MaxTokens,
		refillRate: p.RefillRate,
		refillTime: p.RefillTime,
		lastRefill: now,
		lastUsed:   now,
	}
}

// Allow consumes a token if one is available, otherwise it returns how long
// until the next refill.
func (tb *TokenBucket) Allow() (bool, time.Duration) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	now := time.Now()
	tb.lastUsed = now

	elapsed := now.Sub(tb.lastRefill)
	intervals := int(elapsed / tb.refillTime)
	if intervals > 0 {
		tb.tokens += intervals * tb.refillRate
		if tb.tokens > tb.maxTokens {
			tb.tokens = tb.maxTokens
		}
		tb.lastRefill = tb.lastRefill.Add(time.Duration(intervals) * tb.refillTime)
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}

	return false, tb.lastRefill.Add(tb.refillTime).Sub(now)
}

func (tb *TokenBucket) idleSince(now time.Time) time.Duration {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	return now.Sub(tb.lastUsed)
}

func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action

	rl.mutex.RLock()
	bucket, exists := rl.buckets[key]
	rl.mutex.RUnlock()

	if !exists {
		rl.mutex.Lock()
		if bucket, exists = rl.buckets[key]; !exists {
			policy, ok := rl.policies[action]
			if !ok {
				policy = defaultPolicy
			}
			bucket = NewTokenBucket(policy)
			rl.buckets[key] = bucket
		}
		rl.mutex.Unlock()
	}

	return bucket.Allow()
}

// Cleanup removes buckets idle for longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	removed := 0
	for key, bucket := range rl.buckets {
		if bucket.idleSince(now) > maxIdle {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine prunes idle buckets every interval until ctx is done.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-ctx.Done():
				return
			}
		}
	}()
}
