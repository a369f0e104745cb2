package chatworker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nextlevelbuilder/agentgate/internal/agent"
	"github.com/nextlevelbuilder/agentgate/internal/cron"
	"github.com/nextlevelbuilder/agentgate/internal/docstore"
	"github.com/nextlevelbuilder/agentgate/internal/observability"
	"github.com/nextlevelbuilder/agentgate/internal/providers"
)

type fakeProvider struct{ reply string }

func (f *fakeProvider) Name() string                                              { return "fake" }
func (f *fakeProvider) DefaultModel() string                                      { return "fake-model" }
func (f *fakeProvider) Chat(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	return &providers.ChatResponse{Content: f.reply}, nil
}

func TestHandleRecordAnswersViaAgentAndWritesReply(t *testing.T) {
	var created map[string]any
	var patchedStatus string

	mux := http.NewServeMux()
	mux.HandleFunc("/api/collections/chat_messages/records", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&created)
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/api/collections/chat_messages/records/rec1", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if s, ok := body["status"].(string); ok {
			patchedStatus = s
		}
		w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := docstore.New(srv.URL, "")
	ag := agent.NewWithProvider(&fakeProvider{reply: "hello back"}, "")
	w := New(store, "chat_messages", 1500, ag, cron.NewInProcess(nil), observability.Noop{})

	w.handleRecord(context.Background(), ChatRecord{ID: "rec1", ThreadID: "t1", Role: "user", Content: "hi", Status: "pending"})

	if created["content"] != "hello back" {
		t.Fatalf("unexpected created record: %+v", created)
	}
	if patchedStatus != "done" {
		t.Fatalf("expected final patch status done, got %q", patchedStatus)
	}
}

func TestHandleRecordSchedulesReminder(t *testing.T) {
	var created map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/api/collections/chat_messages/records", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&created)
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/api/collections/chat_messages/records/rec2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := docstore.New(srv.URL, "")
	sched := cron.NewInProcess(nil)
	worker := New(store, "chat_messages", 1500, nil, sched, observability.Noop{})

	worker.handleRecord(context.Background(), ChatRecord{ID: "rec2", ThreadID: "t2", Role: "user", Content: "remind me to call mom in 5 minutes", Status: "pending"})

	if created["source"] != "agentgate-reminder" {
		t.Fatalf("expected a reminder record, got %+v", created)
	}
	if len(sched.Jobs()) != 1 {
		t.Fatalf("expected one scheduled job, got %d", len(sched.Jobs()))
	}
}

func TestHandleRecordRejectsEmptyMessage(t *testing.T) {
	var patchedError string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/collections/chat_messages/records/rec3", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if e, ok := body["error"].(string); ok && e != "" {
			patchedError = e
		}
		w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := docstore.New(srv.URL, "")
	worker := New(store, "chat_messages", 1500, nil, cron.NewInProcess(nil), observability.Noop{})
	worker.handleRecord(context.Background(), ChatRecord{ID: "rec3", ThreadID: "t3", Role: "user", Content: "   ", Status: "pending"})

	if patchedError != "Empty message" {
		t.Fatalf("expected empty message error, got %q", patchedError)
	}
	_ = time.Second
}
