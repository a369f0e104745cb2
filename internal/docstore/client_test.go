package docstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListPageSendsAuthAndDecodesItems(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"page":1,"perPage":30,"totalItems":1,"items":[{"id":"1"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok-123")
	page, err := c.ListPage(context.Background(), "chat_messages", 1, 30, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("expected bearer auth header, got %q", gotAuth)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(page.Items))
	}
}

func TestPatchSendsBodyAndFailsOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["status"] != "done" {
			t.Errorf("expected status=done in body, got %v", body)
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	err := c.Patch(context.Background(), "chat_messages", "rec1", map[string]any{"status": "done"})
	if err == nil {
		t.Fatal("expected error on 404 response")
	}
}
