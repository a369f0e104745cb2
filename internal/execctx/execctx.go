// Package execctx carries the identity of the channel a message is being
// handled for through a call chain via context.Context, the Go analogue of
// a task-local variable.
package execctx

import (
	"context"
	"strings"

	"github.com/nextlevelbuilder/agentgate/internal/cron"
)

type contextKeyType struct{}

var contextKey = contextKeyType{}

// ChannelExecution identifies the channel and conversation a unit of work
// (an agent turn, a scheduled delivery) is running on behalf of.
type ChannelExecution struct {
	Channel   string
	Recipient string
	ThreadTS  string
}

// WithChannelExecution returns a context carrying exec, overriding any
// previous value.
func WithChannelExecution(ctx context.Context, exec ChannelExecution) context.Context {
	return context.WithValue(ctx, contextKey, exec)
}

// FromContext retrieves the ChannelExecution stored by WithChannelExecution,
// if any.
func FromContext(ctx context.Context) (ChannelExecution, bool) {
	v, ok := ctx.Value(contextKey).(ChannelExecution)
	return v, ok
}

// DefaultCronDelivery derives the delivery configuration a scheduled job
// created during this execution should use by default, based on the
// current channel and recipient. Only the "pocketbase" channel with a
// non-empty recipient has a default (announce back into the same DocStore
// chat thread); every other case has no default and the caller must be
// explicit.
func DefaultCronDelivery(ctx context.Context) (cron.DeliveryConfig, bool) {
	exec, ok := FromContext(ctx)
	if !ok {
		return cron.DeliveryConfig{}, false
	}
	channel := strings.ToLower(strings.TrimSpace(exec.Channel))
	recipient := strings.TrimSpace(exec.Recipient)
	if recipient == "" {
		return cron.DeliveryConfig{}, false
	}
	if channel != "pocketbase" {
		return cron.DeliveryConfig{}, false
	}
	return cron.DeliveryConfig{
		Mode:       "announce",
		Channel:    "pocketbase",
		To:         recipient,
		BestEffort: true,
	}, true
}
