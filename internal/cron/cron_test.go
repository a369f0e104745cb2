package cron

import (
	"testing"
	"time"
)

func TestAddOnceAtAndTickFiresExactlyOnce(t *testing.T) {
	var fired []Job
	sched := NewInProcess(func(j Job) { fired = append(fired, j) })

	runAt := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	id, err := sched.AddOnceAt(runAt, "test-job", "hello")
	if err != nil {
		t.Fatalf("AddOnceAt: %v", err)
	}
	if len(sched.Jobs()) != 1 {
		t.Fatalf("expected 1 pending job, got %d", len(sched.Jobs()))
	}

	sched.tick(runAt.Add(-time.Minute))
	if len(fired) != 0 {
		t.Fatalf("expected no fire before run time, got %+v", fired)
	}

	sched.tick(runAt)
	if len(fired) != 1 || fired[0].ID != id {
		t.Fatalf("expected job %s to fire once, got %+v", id, fired)
	}
	if len(sched.Jobs()) != 0 {
		t.Fatalf("expected job to be removed after firing, got %+v", sched.Jobs())
	}

	// Ticking again at the same instant must not re-fire a removed job.
	sched.tick(runAt)
	if len(fired) != 1 {
		t.Fatalf("expected job to fire only once total, got %d fires", len(fired))
	}
}

func TestUpdateDeliveryOnUnknownJobErrors(t *testing.T) {
	sched := NewInProcess(nil)
	if err := sched.UpdateDelivery("nope", DeliveryConfig{}); err == nil {
		t.Fatal("expected error for unknown job ID")
	}
}

func TestUpdateDeliveryAttachesConfig(t *testing.T) {
	sched := NewInProcess(nil)
	id, err := sched.AddOnceAt(time.Now().Add(time.Hour), "job", "msg")
	if err != nil {
		t.Fatalf("AddOnceAt: %v", err)
	}

	delivery := DeliveryConfig{Mode: "channel", Channel: "telegram", To: "123", BestEffort: true}
	if err := sched.UpdateDelivery(id, delivery); err != nil {
		t.Fatalf("UpdateDelivery: %v", err)
	}

	jobs := sched.Jobs()
	if len(jobs) != 1 || jobs[0].Delivery != delivery {
		t.Fatalf("expected delivery to be attached, got %+v", jobs)
	}
}

func TestHumanDelayFormatsEachUnit(t *testing.T) {
	cases := map[time.Duration]string{
		30 * time.Second: "30 seconds",
		time.Second:      "1 second",
		5 * time.Minute:  "5 minutes",
		time.Hour:        "1 hour",
		3 * time.Hour:    "3 hours",
		48 * time.Hour:   "2 days",
	}
	for d, want := range cases {
		if got := HumanDelay(d); got != want {
			t.Errorf("HumanDelay(%s) = %q, want %q", d, got, want)
		}
	}
}
