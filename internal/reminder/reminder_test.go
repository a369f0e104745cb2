package reminder

import (
	"testing"
	"time"
)

func TestParseSlashReminder(t *testing.T) {
	intent, ok := Parse("/remind 10m take the bread out")
	if !ok {
		t.Fatal("expected a match")
	}
	if intent.Delay != 10*time.Minute {
		t.Fatalf("unexpected delay: %v", intent.Delay)
	}
	if intent.Message != "take the bread out" {
		t.Fatalf("unexpected message: %q", intent.Message)
	}
}

func TestParseNaturalLanguageReminder(t *testing.T) {
	intent, ok := Parse("remind me to call mom in 2 hours")
	if !ok {
		t.Fatal("expected a match")
	}
	if intent.Delay != 2*time.Hour {
		t.Fatalf("unexpected delay: %v", intent.Delay)
	}
	if intent.Message != "call mom" {
		t.Fatalf("unexpected message: %q", intent.Message)
	}
}

func TestParseSetReminderPhrasing(t *testing.T) {
	intent, ok := Parse("please set a reminder to water the plants in 30 minutes")
	if !ok {
		t.Fatal("expected a match")
	}
	if intent.Delay != 30*time.Minute {
		t.Fatalf("unexpected delay: %v", intent.Delay)
	}
	if intent.Message != "water the plants" {
		t.Fatalf("unexpected message: %q", intent.Message)
	}
}

func TestParseNoMatch(t *testing.T) {
	if _, ok := Parse("hey how's it going"); ok {
		t.Fatal("expected no match for ordinary chat")
	}
}

func TestParseEmptyMessageRejected(t *testing.T) {
	if _, ok := Parse("/remind 10m"); ok {
		t.Fatal("expected empty reminder message to be rejected")
	}
}

func TestParseLeadingDelayUnits(t *testing.T) {
	cases := map[string]time.Duration{
		"5s":  5 * time.Second,
		"5m":  5 * time.Minute,
		"5h":  5 * time.Hour,
		"5d":  5 * 24 * time.Hour,
		"1hour": 1 * time.Hour,
	}
	for in, want := range cases {
		d, _, _, ok := parseLeadingDelay(in)
		if !ok {
			t.Fatalf("expected %q to parse", in)
		}
		if d != want {
			t.Fatalf("%q: got %v want %v", in, d, want)
		}
	}
}

func TestNormalizeMessageStripsFillerAndPunctuation(t *testing.T) {
	if got := normalizeMessage("about the meeting!!"); got != "the meeting" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := normalizeMessage("to call mom."); got != "call mom" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestLastInOccurrenceUsedAsDelayBoundary(t *testing.T) {
	// "check in" earlier in the sentence must not be mistaken for the delay
	// boundary; only the final " in " before the duration counts.
	intent, ok := Parse("remind me to check in with the team in 15 minutes")
	if !ok {
		t.Fatal("expected a match")
	}
	if intent.Message != "check in with the team" {
		t.Fatalf("unexpected message: %q", intent.Message)
	}
}
