// Package cron provides the minimal scheduler surface the gateway needs:
// one-shot jobs created from a reminder parse, delivered back into a
// channel at a future time.
package cron

import (
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"
)

// DeliveryConfig describes where a scheduled job's output should be sent
// once it fires.
type DeliveryConfig struct {
	Mode       string `json:"mode"`
	Channel    string `json:"channel,omitempty"`
	To         string `json:"to,omitempty"`
	BestEffort bool   `json:"bestEffort"`
}

// Job is a single scheduled unit of work.
type Job struct {
	ID       string
	Name     string
	RunAt    time.Time
	Message  string
	Delivery DeliveryConfig
	expr     string
}

// Scheduler is the collaborator the chat worker dispatches reminders to.
// The gateway uses the in-process implementation below; Scheduler is the
// thin interface boundary any other implementation plugs in behind.
type Scheduler interface {
	AddOnceAt(runAt time.Time, name, message string) (jobID string, err error)
	UpdateDelivery(jobID string, delivery DeliveryConfig) error
	Jobs() []Job
}

// InProcess is a minimal Scheduler that fires jobs via a background
// goroutine. Each job is one-off: its time is expressed as a gronx cron
// expression computed from runAt, and the job is removed once it fires.
type InProcess struct {
	mu   sync.Mutex
	jobs map[string]*Job
	fire func(Job)

	parser gronx.Gronx
}

// NewInProcess creates a scheduler that invokes onFire (if non-nil) once a
// job's computed expression matches, checked on each tick of Run.
func NewInProcess(onFire func(Job)) *InProcess {
	return &InProcess{
		jobs:   make(map[string]*Job),
		fire:   onFire,
		parser: gronx.New(),
	}
}

// AddOnceAt schedules message to fire once at runAt, returning a job ID.
func (s *InProcess) AddOnceAt(runAt time.Time, name, message string) (string, error) {
	expr := fmt.Sprintf("%d %d %d %d *", runAt.Minute(), runAt.Hour(), runAt.Day(), int(runAt.Month()))
	if !s.parser.IsValid(expr) {
		return "", fmt.Errorf("cron: invalid computed expression %q", expr)
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.jobs[id] = &Job{
		ID:      id,
		Name:    name,
		RunAt:   runAt,
		Message: message,
		expr:    expr,
	}
	s.mu.Unlock()
	return id, nil
}

// UpdateDelivery attaches delivery configuration to an existing job.
func (s *InProcess) UpdateDelivery(jobID string, delivery DeliveryConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("cron: unknown job %q", jobID)
	}
	job.Delivery = delivery
	return nil
}

// Jobs returns a snapshot of all jobs still pending; fired jobs are removed.
func (s *InProcess) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	return out
}

// Run ticks every checkInterval until ctx-like stop channel closes, firing
// any job whose expression currently matches exactly once.
func (s *InProcess) Run(stop <-chan struct{}, checkInterval time.Duration) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

func (s *InProcess) tick(now time.Time) {
	s.mu.Lock()
	var due []Job
	for id, job := range s.jobs {
		ok, err := s.parser.IsDue(job.expr, now)
		if err != nil || !ok {
			continue
		}
		due = append(due, *job)
		delete(s.jobs, id)
	}
	s.mu.Unlock()

	for _, job := range due {
		if s.fire != nil {
			s.fire(job)
		}
	}
}

// HumanDelay formats a duration the way reminder replies describe it, e.g.
// "5 minutes" or "1 hour".
func HumanDelay(d time.Duration) string {
	switch {
	case d < time.Minute:
		secs := int(d.Seconds())
		return pluralize(secs, "second")
	case d < time.Hour:
		mins := int(d.Minutes())
		return pluralize(mins, "minute")
	case d < 24*time.Hour:
		hours := int(d.Hours())
		return pluralize(hours, "hour")
	default:
		days := int(d.Hours() / 24)
		return pluralize(days, "day")
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
