package capacity

import (
	"sync"
	"time"
)

// WarnedKeys is a bounded TTL set used to rate-limit repeated log lines for
// the same key. It is owned and injected by whoever does the logging, so
// tests can reset it and multiple service instances need no shared state.
type WarnedKeys struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]time.Time
	now        func() time.Time
}

// Default limits for the warned-key set
const (
	DefaultWarnTTL        = 10 * time.Minute
	DefaultWarnMaxEntries = 4096
)

// NewWarnedKeys creates a warned-key set. Non-positive arguments fall back
// to the defaults.
func NewWarnedKeys(ttl time.Duration, maxEntries int) *WarnedKeys {
	if ttl <= 0 {
		ttl = DefaultWarnTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultWarnMaxEntries
	}
	return &WarnedKeys{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]time.Time),
		now:        time.Now,
	}
}

// ShouldWarn reports whether the key has not been warned about within the
// TTL window, and records it as warned when it has not.
func (w *WarnedKeys) ShouldWarn(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if warnedAt, ok := w.entries[key]; ok && now.Sub(warnedAt) < w.ttl {
		return false
	}
	if len(w.entries) >= w.maxEntries {
		w.evict(now)
	}
	w.entries[key] = now
	return true
}

// Reset clears all recorded keys
func (w *WarnedKeys) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = make(map[string]time.Time)
}

// evict drops expired entries, and the oldest entry if nothing expired, so
// the set stays bounded. Caller holds the lock.
func (w *WarnedKeys) evict(now time.Time) {
	oldestKey := ""
	var oldestAt time.Time
	for key, at := range w.entries {
		if now.Sub(at) >= w.ttl {
			delete(w.entries, key)
			continue
		}
		if oldestKey == "" || at.Before(oldestAt) {
			oldestKey = key
			oldestAt = at
		}
	}
	if len(w.entries) >= w.maxEntries && oldestKey != "" {
		delete(w.entries, oldestKey)
	}
}
