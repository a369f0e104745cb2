// Package pairing implements the one-time-code-to-bearer-token handshake
// that authenticates mobile and desktop clients against the gateway.
package pairing

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

const (
	codeDigits        = 6
	tokenBytes        = 32 // 64 hex chars
	maxFailedAttempts = 5
	lockoutDuration   = 30 * time.Second
)

// Guard mints and validates pairing codes and the bearer tokens issued once
// a code is redeemed. All state is held in memory; callers are responsible
// for persisting Tokens() across restarts.
type Guard struct {
	mu sync.Mutex

	required bool
	code     string
	tokens   map[string]bool

	failures  map[string]int
	lockedAt  map[string]time.Time

	now func() time.Time
}

// New creates a Guard. tokens seeds already-issued bearer tokens (e.g.
// restored from config on startup).
func New(required bool, tokens []string) *Guard {
	g := &Guard{
		required: required,
		tokens:   make(map[string]bool, len(tokens)),
		failures: make(map[string]int),
		lockedAt: make(map[string]time.Time),
		now:      time.Now,
	}
	for _, t := range tokens {
		g.tokens[t] = true
	}
	if required {
		g.code, _ = g.mintCode()
	}
	return g
}

// RequirePairing reports whether bearer auth is enforced at all.
func (g *Guard) RequirePairing() bool { return g.required }

// IsAuthenticated reports whether token is a currently-valid bearer token.
// When pairing is not required at all, every caller is considered
// authenticated regardless of token.
func (g *Guard) IsAuthenticated(token string) bool {
	g.mu.Lock()
	required := g.required
	g.mu.Unlock()
	if !required {
		return true
	}
	if token == "" {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for known := range g.tokens {
		if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
			return true
		}
	}
	return false
}

// TryPair validates code against the active pairing code for rateKey's
// lockout bucket. On success it mints and records a new bearer token. On
// too many recent failures it returns an error carrying the remaining
// lockout in seconds.
func (g *Guard) TryPair(code, rateKey string) (token string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if lockedAt, ok := g.lockedAt[rateKey]; ok {
		remaining := lockoutDuration - now.Sub(lockedAt)
		if remaining > 0 {
			return "", &LockoutError{RetryAfterSecs: int(remaining.Seconds()) + 1}
		}
		delete(g.lockedAt, rateKey)
		delete(g.failures, rateKey)
	}

	if subtle.ConstantTimeCompare([]byte(g.code), []byte(code)) != 1 {
		g.failures[rateKey]++
		if g.failures[rateKey] >= maxFailedAttempts {
			g.lockedAt[rateKey] = now
			return "", &LockoutError{RetryAfterSecs: int(lockoutDuration.Seconds())}
		}
		return "", nil
	}

	delete(g.failures, rateKey)
	newToken, mintErr := g.mintToken()
	if mintErr != nil {
		return "", mintErr
	}
	g.tokens[newToken] = true
	return newToken, nil
}

// RegenerateCode mints a fresh pairing code, invalidating the previous one.
func (g *Guard) RegenerateCode() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	code, err := g.mintCode()
	if err != nil {
		return "", err
	}
	g.code = code
	return code, nil
}

// Tokens returns a snapshot of all currently-valid bearer tokens, for
// persistence to disk.
func (g *Guard) Tokens() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.tokens))
	for t := range g.tokens {
		out = append(out, t)
	}
	return out
}

func (g *Guard) mintCode() (string, error) {
	max := int64(1)
	for i := 0; i < codeDigits; i++ {
		max *= 10
	}
	n, err := randomUint(max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}

func (g *Guard) mintToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func randomUint(max int64) (int64, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return int64(v % uint64(max)), nil
}

// LockoutError is returned by TryPair when a rate key has failed too many
// times in a row.
type LockoutError struct {
	RetryAfterSecs int
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("too many failed pairing attempts, retry in %ds", e.RetryAfterSecs)
}
