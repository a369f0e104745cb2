package pairing

import (
	"errors"
	"testing"
)

func TestTryPairSucceedsWithCorrectCode(t *testing.T) {
	g := New(true, nil)
	code := g.code

	token, err := g.TryPair(code, "1.2.3.4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a minted token")
	}
	if !g.IsAuthenticated(token) {
		t.Fatal("expected minted token to authenticate")
	}
}

func TestTryPairRejectsWrongCode(t *testing.T) {
	g := New(true, nil)
	token, err := g.TryPair("000000", "1.2.3.4")
	if err != nil {
		t.Fatalf("unexpected lockout error: %v", err)
	}
	if token != "" {
		t.Fatal("expected no token on wrong code")
	}
}

func TestTryPairLocksOutAfterTooManyFailures(t *testing.T) {
	g := New(true, nil)
	var lastErr error
	for i := 0; i < maxFailedAttempts; i++ {
		_, lastErr = g.TryPair("000000", "same-key")
	}
	var lockout *LockoutError
	if !errors.As(lastErr, &lockout) {
		t.Fatalf("expected lockout error after %d failures, got %v", maxFailedAttempts, lastErr)
	}
	if lockout.RetryAfterSecs <= 0 {
		t.Fatal("expected positive retry-after")
	}
}

func TestIsAuthenticatedRejectsEmptyToken(t *testing.T) {
	g := New(true, nil)
	if g.IsAuthenticated("") {
		t.Fatal("empty token must never authenticate")
	}
}

func TestRequirePairingFalseWhenDisabled(t *testing.T) {
	g := New(false, nil)
	if g.RequirePairing() {
		t.Fatal("expected pairing to be optional")
	}
}

func TestIsAuthenticatedShortCircuitsWhenPairingDisabled(t *testing.T) {
	g := New(false, nil)
	if !g.IsAuthenticated("") {
		t.Fatal("expected every caller to authenticate when pairing is not required")
	}
	if !g.IsAuthenticated("anything") {
		t.Fatal("expected every caller to authenticate when pairing is not required")
	}
}
