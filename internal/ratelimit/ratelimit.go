// Package ratelimit implements a per-key sliding-window rate limiter.
package ratelimit

import (
	"sort"
	"sync"
	"time"
)

// defaultSweepInterval bounds how often an allow() call pays the cost of scanning
// every key for staleness. Between sweeps, a full key also triggers an
// opportunistic eviction so cardinality never exceeds maxKeys.
const defaultSweepInterval = 300 * time.Second

// Window is a single named sliding-window limiter: it tracks, per key, the
// timestamps of allowed requests within the trailing window and rejects once
// a key has reached its limit for that window.
type Window struct {
	mu       sync.Mutex
	hits     map[string][]time.Time
	lastSwept time.Time

	limit    int
	window   time.Duration
	maxKeys  int
	sweepEvery time.Duration

	now func() time.Time
}

// New creates a sliding-window limiter allowing up to limit events per
// window, for up to maxKeys distinct keys. limit == 0 disables the
// limiter (Allow always returns true). maxKeys <= 0 falls back to 1.
func New(limit int, window time.Duration, maxKeys int) *Window {
	if maxKeys <= 0 {
		maxKeys = 1
	}
	return &Window{
		hits:       make(map[string][]time.Time),
		limit:      limit,
		window:     window,
		maxKeys:    maxKeys,
		sweepEvery: defaultSweepInterval,
		now:        time.Now,
	}
}

// Allow records one event for key if it is within the window's limit.
func (w *Window) Allow(key string) bool {
	if w.limit == 0 {
		return true
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	cutoff := now.Add(-w.window)

	w.maybeSweep(now, cutoff)

	entries, exists := w.hits[key]
	if !exists {
		if len(w.hits) >= w.maxKeys {
			w.sweepLocked(cutoff)
			if len(w.hits) >= w.maxKeys {
				w.evictOldestLocked()
			}
		}
	}

	entries = pruneBefore(entries, cutoff)
	if len(entries) >= w.limit {
		w.hits[key] = entries
		return false
	}

	entries = append(entries, now)
	w.hits[key] = entries
	return true
}

func pruneBefore(entries []time.Time, cutoff time.Time) []time.Time {
	kept := entries[:0]
	for _, t := range entries {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

func (w *Window) maybeSweep(now, cutoff time.Time) {
	if w.lastSwept.IsZero() {
		w.lastSwept = now
		return
	}
	if now.Sub(w.lastSwept) < w.sweepEvery {
		return
	}
	w.sweepLocked(cutoff)
	w.lastSwept = now
}

func (w *Window) sweepLocked(cutoff time.Time) {
	for k, entries := range w.hits {
		pruned := pruneBefore(entries, cutoff)
		if len(pruned) == 0 {
			delete(w.hits, k)
			continue
		}
		w.hits[k] = pruned
	}
}

// evictOldestLocked removes the key whose most recent timestamp is the
// smallest, i.e. the least-recently-active key.
func (w *Window) evictOldestLocked() {
	var victim string
	var oldest time.Time
	first := true
	for k, entries := range w.hits {
		if len(entries) == 0 {
			victim = k
			break
		}
		last := entries[len(entries)-1]
		if first || last.Before(oldest) {
			victim = k
			oldest = last
			first = false
		}
	}
	if victim != "" {
		delete(w.hits, victim)
	}
}

// Keys returns a sorted snapshot of the currently tracked keys. Intended for
// tests and diagnostics only.
func (w *Window) Keys() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	keys := make([]string, 0, len(w.hits))
	for k := range w.hits {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NormalizeMaxKeys returns configured if it is positive, otherwise
// fallback (itself floored to 1).
func NormalizeMaxKeys(configured, fallback int) int {
	if configured > 0 {
		return configured
	}
	if fallback < 1 {
		return 1
	}
	return fallback
}

// Gateway bundles the two independently-keyed limiters the admission layer
// needs: one for pairing attempts, one for inbound webhook deliveries.
type Gateway struct {
	Pair    *Window
	Webhook *Window
}

// NewGateway builds a Gateway with both limiters sharing a 60s window.
func NewGateway(pairLimit, webhookLimit, maxKeys int) *Gateway {
	const window = 60 * time.Second
	return &Gateway{
		Pair:    New(pairLimit, window, maxKeys),
		Webhook: New(webhookLimit, window, maxKeys),
	}
}

// AllowPair reports whether a pairing attempt from key is within budget.
func (g *Gateway) AllowPair(key string) bool { return g.Pair.Allow(key) }

// AllowWebhook reports whether a webhook delivery from key is within budget.
func (g *Gateway) AllowWebhook(key string) bool { return g.Webhook.Allow(key) }
