package presence

import (
	"context"
	"sync"
	"time"

	"farmconnect/pkg/logger"
)

const minSweepInterval = 10 * time.Millisecond

// TransitionFunc receives typing state changes. It runs with the tracker lock
// held, so it must not block and must not call back into the tracker.
type TransitionFunc func(conversationID, userID string, typing bool)

type entryKey struct {
	conversationID string
	userID         string
}

// TypingTracker holds ephemeral "is typing" flags. A flag lives for ttl minus
// one sweep interval after its last refresh, so the stop is reported within
// ttl even when the sweep that catches it runs late. Only transitions are
// reported, so a burst of keystrokes yields one start and one stop.
type TypingTracker struct {
	ttl           time.Duration
	lifetime      time.Duration
	sweepInterval time.Duration
	onTransition  TransitionFunc
	now           func() time.Time

	mu      sync.Mutex
	entries map[entryKey]time.Time
}

func NewTypingTracker(ttl time.Duration, onTransition TransitionFunc) *TypingTracker {
	interval := ttl / 5
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	lifetime := ttl - interval
	if lifetime <= 0 {
		lifetime = ttl
	}

	return &TypingTracker{
		ttl:           ttl,
		lifetime:      lifetime,
		sweepInterval: interval,
		onTransition:  onTransition,
		now:           time.Now,
		entries:       make(map[entryKey]time.Time),
	}
}

// Run sweeps expired entries until ctx is cancelled.
func (t *TypingTracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := t.Sweep(); n > 0 {
				logger.Debug("Typing: expired %d indicator(s)", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// StartTyping creates or refreshes the entry. It reports true on a
// not-typing -> typing transition.
func (t *TypingTracker) StartTyping(conversationID, userID string) bool {
	key := entryKey{conversationID, userID}

	t.mu.Lock()
	defer t.mu.Unlock()

	_, alreadyTyping := t.entries[key]
	t.entries[key] = t.now().Add(t.lifetime)
	if alreadyTyping {
		return false
	}
	t.emit(key, true)
	return true
}

// StopTyping removes the entry. It reports true on a typing -> not-typing transition.
func (t *TypingTracker) StopTyping(conversationID, userID string) bool {
	key := entryKey{conversationID, userID}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[key]; !ok {
		return false
	}
	delete(t.entries, key)
	t.emit(key, false)
	return true
}

func (t *TypingTracker) IsTyping(conversationID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[entryKey{conversationID, userID}]
	return ok
}

// Sweep removes every expired entry, reporting each as a stop transition.
func (t *TypingTracker) Sweep() int {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	expired := 0
	for key, expiresAt := range t.entries {
		if now.Before(expiresAt) {
			continue
		}
		delete(t.entries, key)
		t.emit(key, false)
		expired++
	}
	return expired
}

func (t *TypingTracker) emit(key entryKey, typing bool) {
	if t.onTransition != nil {
		t.onTransition(key.conversationID, key.userID, typing)
	}
}
