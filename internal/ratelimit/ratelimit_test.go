package ratelimit

import (
	"testing"
	"time"
)

func TestWindowAllowsUpToLimit(t *testing.T) {
	w := New(3, time.Minute, 10)
	for i := 0; i < 3; i++ {
		if !w.Allow("alice") {
			t.Fatalf("expected allow on attempt %d", i)
		}
	}
	if w.Allow("alice") {
		t.Fatal("expected rejection once limit reached")
	}
}

func TestWindowDisabledWhenLimitZero(t *testing.T) {
	w := New(0, time.Minute, 10)
	for i := 0; i < 50; i++ {
		if !w.Allow("anyone") {
			t.Fatal("limit 0 must always allow")
		}
	}
}

func TestWindowExpiresEntries(t *testing.T) {
	fakeNow := time.Now()
	w := New(1, time.Second, 10)
	w.now = func() time.Time { return fakeNow }

	if !w.Allow("bob") {
		t.Fatal("expected first attempt to be allowed")
	}
	if w.Allow("bob") {
		t.Fatal("expected second attempt within window to be rejected")
	}

	fakeNow = fakeNow.Add(2 * time.Second)
	if !w.Allow("bob") {
		t.Fatal("expected attempt after window to be allowed")
	}
}

func TestWindowEvictsLeastRecentKeyAtCapacity(t *testing.T) {
	fakeNow := time.Now()
	w := New(5, time.Minute, 2)
	w.now = func() time.Time { return fakeNow }

	w.Allow("old")
	fakeNow = fakeNow.Add(time.Second)
	w.Allow("new")

	fakeNow = fakeNow.Add(time.Second)
	w.Allow("third") // should evict "old", the least-recently-active key

	keys := w.Keys()
	for _, k := range keys {
		if k == "old" {
			t.Fatalf("expected 'old' to be evicted, got keys=%v", keys)
		}
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys after eviction, got %v", keys)
	}
}

func TestNormalizeMaxKeys(t *testing.T) {
	if got := NormalizeMaxKeys(0, 42); got != 42 {
		t.Fatalf("expected fallback 42, got %d", got)
	}
	if got := NormalizeMaxKeys(7, 42); got != 7 {
		t.Fatalf("expected configured 7, got %d", got)
	}
	if got := NormalizeMaxKeys(0, 0); got != 1 {
		t.Fatalf("expected floor of 1, got %d", got)
	}
}
