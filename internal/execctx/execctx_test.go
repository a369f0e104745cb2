package execctx

import (
	"context"
	"testing"
)

func TestWithChannelExecutionRoundTrip(t *testing.T) {
	ctx := WithChannelExecution(context.Background(), ChannelExecution{
		Channel:   "pocketbase",
		Recipient: "thread-42",
		ThreadTS:  "thread-42",
	})
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected a stored execution context")
	}
	if got.Channel != "pocketbase" || got.Recipient != "thread-42" {
		t.Fatalf("unexpected round trip: %+v", got)
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("expected no execution context on a bare context")
	}
}

func TestDefaultCronDeliveryOnlyForPocketbase(t *testing.T) {
	ctx := WithChannelExecution(context.Background(), ChannelExecution{Channel: "pocketbase", Recipient: "abc"})
	cfg, ok := DefaultCronDelivery(ctx)
	if !ok {
		t.Fatal("expected a default delivery for pocketbase")
	}
	if cfg.Mode != "announce" || cfg.To != "abc" || !cfg.BestEffort {
		t.Fatalf("unexpected delivery config: %+v", cfg)
	}

	ctx2 := WithChannelExecution(context.Background(), ChannelExecution{Channel: "whatsapp", Recipient: "abc"})
	if _, ok := DefaultCronDelivery(ctx2); ok {
		t.Fatal("expected no default delivery for non-pocketbase channels")
	}

	ctx3 := WithChannelExecution(context.Background(), ChannelExecution{Channel: "pocketbase", Recipient: ""})
	if _, ok := DefaultCronDelivery(ctx3); ok {
		t.Fatal("expected no default delivery when recipient is empty")
	}
}
