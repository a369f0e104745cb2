// Package chatworker polls the DocStore chat collection for pending user
// messages, answers them via the in-process agent or the reminder
// scheduler, and writes the reply back as a new record.
package chatworker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nextlevelbuilder/agentgate/internal/agent"
	"github.com/nextlevelbuilder/agentgate/internal/cron"
	"github.com/nextlevelbuilder/agentgate/internal/docstore"
	"github.com/nextlevelbuilder/agentgate/internal/execctx"
	"github.com/nextlevelbuilder/agentgate/internal/observability"
	"github.com/nextlevelbuilder/agentgate/internal/reminder"
)

const (
	fetchPageSize     = 30
	maxFetchPages     = 5
	maxPendingPerPoll = 8
)

// ChatRecord mirrors one row of the chat_messages collection.
type ChatRecord struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
	Role     string `json:"role"`
	Content  string `json:"content"`
	Status   string `json:"status"`
}

// Worker polls DocStore for pending messages and answers them.
type Worker struct {
	Store      *docstore.Client
	Collection string
	PollInterval time.Duration
	Agent      *agent.Agent
	Scheduler  cron.Scheduler
	Observer   observability.Observer
}

// New builds a Worker with collection/poll-interval defaults applied when
// left zero.
func New(store *docstore.Client, collection string, pollMs int, ag *agent.Agent, sched cron.Scheduler, obs observability.Observer) *Worker {
	if collection == "" {
		collection = "chat_messages"
	}
	if pollMs < 250 {
		pollMs = 1500
	}
	if obs == nil {
		obs = observability.Noop{}
	}
	return &Worker{
		Store:        store,
		Collection:   collection,
		PollInterval: time.Duration(pollMs) * time.Millisecond,
		Agent:        ag,
		Scheduler:    sched,
		Observer:     obs,
	}
}

// Run ticks at PollInterval until stop is closed, draining the ticker
// channel before each tick the way the gateway's other background loops do
// so a slow poll never queues up a burst of catch-up ticks.
func (w *Worker) Run(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			default:
			case <-ticker.C:
			}
			if err := w.pollOnce(ctx); err != nil {
				w.Observer.Error("chatworker", err)
			}
		}
	}
}

func (w *Worker) pollOnce(ctx context.Context) error {
	pending, err := w.fetchPending(ctx)
	if err != nil {
		return err
	}
	for _, record := range pending {
		if err := w.handleRecord(ctx, record); err != nil {
			return fmt.Errorf("chatworker: aborting tick after claim failure on %s: %w", record.ID, err)
		}
	}
	return nil
}

func (w *Worker) fetchPending(ctx context.Context) ([]ChatRecord, error) {
	var pending []ChatRecord
	for page := 1; page <= maxFetchPages; page++ {
		result, err := w.Store.ListPage(ctx, w.Collection, page, fetchPageSize, "")
		if err != nil {
			return nil, fmt.Errorf("chatworker: poll failed: %w", err)
		}
		for _, raw := range result.Items {
			var rec ChatRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				continue
			}
			if !strings.EqualFold(rec.Role, "user") || !strings.EqualFold(rec.Status, "pending") {
				continue
			}
			pending = append(pending, rec)
		}
		if len(result.Items) < fetchPageSize {
			break
		}
	}

	// DocStore pages newest-first; reverse so older pending items are
	// answered before newer ones in a best-effort FIFO order.
	for i, j := 0, len(pending)-1; i < j; i, j = i+1, j-1 {
		pending[i], pending[j] = pending[j], pending[i]
	}
	if len(pending) > maxPendingPerPoll {
		pending = pending[:maxPendingPerPoll]
	}
	return pending, nil
}

func (w *Worker) handleRecord(ctx context.Context, record ChatRecord) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if err := w.patch(ctx, record.ID, map[string]any{"status": "processing", "error": ""}); err != nil {
		return err
	}

	threadID := strings.TrimSpace(record.ThreadID)
	if threadID == "" {
		threadID = "default"
	}
	content := strings.TrimSpace(record.Content)
	if content == "" {
		_ = w.patch(ctx, record.ID, map[string]any{
			"status":      "error",
			"error":       "Empty message",
			"processedAt": now,
		})
		return nil
	}

	if intent, ok := reminder.Parse(content); ok {
		w.handleReminder(ctx, record, threadID, intent)
		return nil
	}

	execCtx := execctx.WithChannelExecution(ctx, execctx.ChannelExecution{
		Channel:   "pocketbase",
		Recipient: threadID,
		ThreadTS:  threadID,
	})

	w.Observer.AgentStart("chatworker")
	reply, err := w.Agent.Process(execCtx, nil, content)
	w.Observer.AgentEnd("chatworker")
	processedAt := time.Now().UTC().Format(time.RFC3339)

	if err != nil {
		errText := truncate(err.Error(), 2000)
		_ = w.create(ctx, map[string]any{
			"threadId":       threadID,
			"role":           "assistant",
			"content":        "",
			"status":         "error",
			"source":         "agentgate",
			"replyToId":      record.ID,
			"error":          errText,
			"createdAtClient": processedAt,
			"processedAt":    processedAt,
		})
		_ = w.patch(ctx, record.ID, map[string]any{
			"status":      "error",
			"error":       errText,
			"processedAt": processedAt,
		})
		return nil
	}

	replyText := strings.TrimSpace(reply)
	if replyText == "" {
		replyText = "(empty response)"
	}
	_ = w.create(ctx, map[string]any{
		"threadId":       threadID,
		"role":           "assistant",
		"content":        replyText,
		"status":         "done",
		"source":         "agentgate",
		"replyToId":      record.ID,
		"createdAtClient": processedAt,
		"processedAt":    processedAt,
	})
	_ = w.patch(ctx, record.ID, map[string]any{
		"status":      "done",
		"processedAt": processedAt,
	})
	return nil
}

func (w *Worker) handleReminder(ctx context.Context, record ChatRecord, threadID string, intent reminder.Intent) {
	now := time.Now().UTC().Format(time.RFC3339)
	runAt := time.Now().Add(intent.Delay)
	command := "echo " + shellSingleQuote("Reminder: "+intent.Message)
	jobName := "PB chat reminder: " + truncate(intent.Message, 48)

	jobID, err := w.Scheduler.AddOnceAt(runAt, jobName, command)
	if err != nil {
		errText := truncate(err.Error(), 2000)
		_ = w.create(ctx, map[string]any{
			"threadId":       threadID,
			"role":           "assistant",
			"content":        "",
			"status":         "error",
			"source":         "agentgate-reminder",
			"replyToId":      record.ID,
			"error":          errText,
			"createdAtClient": now,
			"processedAt":    now,
		})
		_ = w.patch(ctx, record.ID, map[string]any{
			"status":      "error",
			"error":       errText,
			"processedAt": now,
		})
		return
	}

	_ = w.Scheduler.UpdateDelivery(jobID, cron.DeliveryConfig{
		Mode:       "announce",
		Channel:    "pocketbase",
		To:         threadID,
		BestEffort: true,
	})

	reply := fmt.Sprintf(
		"Scheduled reminder for this chat at %s (%s) [job %s]. Note: reminders run from the scheduler, so start the sidecar daemon (not only the gateway).",
		runAt.Format(time.RFC3339), intent.HumanDelay, jobID,
	)
	_ = w.create(ctx, map[string]any{
		"threadId":       threadID,
		"role":           "assistant",
		"content":        reply,
		"status":         "done",
		"source":         "agentgate-reminder",
		"replyToId":      record.ID,
		"createdAtClient": now,
		"processedAt":    now,
	})
	_ = w.patch(ctx, record.ID, map[string]any{
		"status":      "done",
		"processedAt": now,
	})
}

func (w *Worker) patch(ctx context.Context, id string, body map[string]any) error {
	return w.Store.Patch(ctx, w.Collection, id, body)
}

func (w *Worker) create(ctx context.Context, body map[string]any) error {
	_, err := w.Store.Create(ctx, w.Collection, body)
	return err
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// shellSingleQuote single-quotes text for safe embedding in the one-shot
// shell command a reminder job runs once it fires.
func shellSingleQuote(text string) string {
	return "'" + strings.ReplaceAll(text, "'", `'"'"'`) + "'"
}
