package chatapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/agentgate/internal/docstore"
	"github.com/nextlevelbuilder/agentgate/internal/pairing"
)

func newUnpairedTestState(t *testing.T, storeURL string) *State {
	t.Helper()
	return &State{
		Store:             docstore.New(storeURL, ""),
		ChatCollection:    "chat_messages",
		JournalCollection: "journal_entries",
		WorkspaceDir:      t.TempDir(),
		Pairing:           pairing.New(false, nil),
	}
}

func TestChatSendRejectsEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.NewServeMux())
	defer srv.Close()
	state := newUnpairedTestState(t, srv.URL)

	body, _ := json.Marshal(map[string]string{"threadId": "t1", "content": "   "})
	req := httptest.NewRequest(http.MethodPost, "/api/chat/messages", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	state.HandleChatSend(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestChatSendCreatesPendingRecord(t *testing.T) {
	var created map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/collections/chat_messages/records", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&created)
		w.Write([]byte(`{"id":"rec1"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	state := newUnpairedTestState(t, srv.URL)

	body, _ := json.Marshal(map[string]string{"threadId": "t1", "content": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat/messages", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	state.HandleChatSend(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if created["status"] != "pending" || created["role"] != "user" {
		t.Fatalf("unexpected created record: %+v", created)
	}
}

func TestChatApiRequiresPairingWhenEnabled(t *testing.T) {
	srv := httptest.NewServer(http.NewServeMux())
	defer srv.Close()
	state := newUnpairedTestState(t, srv.URL)
	state.Pairing = pairing.New(true, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/messages?threadId=t1", nil)
	rec := httptest.NewRecorder()
	state.HandleChatList(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when unpaired, got %d", rec.Code)
	}
}

func TestSafeFileNameReplacesUnsafeCharacters(t *testing.T) {
	if got := safeFileName("My Report (final)!.pdf"); got != "My_Report__final__.pdf" {
		t.Fatalf("unexpected safe name: %q", got)
	}
	if got := safeFileName("???"); got != "upload.bin" {
		t.Fatalf("expected fallback name, got %q", got)
	}
}

func TestResolveWorkspaceTextPathEnforcesAllowList(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "memory"), 0o755)

	if _, ok := resolveWorkspaceTextPath(dir, "memory/notes.md"); !ok {
		t.Fatal("expected memory/ to be allowed")
	}
	if _, ok := resolveWorkspaceTextPath(dir, "secrets/keys.md"); ok {
		t.Fatal("expected an unlisted root to be rejected")
	}
	if _, ok := resolveWorkspaceTextPath(dir, "../outside.md"); ok {
		t.Fatal("expected path escaping the workspace to be rejected")
	}
}

func TestResolveWorkspaceMediaPathRequiresExistingJournalsSubtree(t *testing.T) {
	dir := t.TempDir()
	mediaDir := filepath.Join(dir, "journals", "media", "image")
	os.MkdirAll(mediaDir, 0o755)
	os.WriteFile(filepath.Join(mediaDir, "pic.jpg"), []byte("x"), 0o644)

	if _, ok := resolveWorkspaceMediaPath(dir, "journals/media/image/pic.jpg"); !ok {
		t.Fatal("expected an existing file under journals/ to resolve")
	}
	if _, ok := resolveWorkspaceMediaPath(dir, "memory/pic.jpg"); ok {
		t.Fatal("expected a path outside journals/ to be rejected")
	}
}

func TestLibraryItemsHidesUnknownExtensionsAndAppliesFeedExclusions(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "posts"), 0o755)
	os.MkdirAll(filepath.Join(dir, "posts", "artifacts"), 0o755)
	os.WriteFile(filepath.Join(dir, "posts", "note.md"), []byte("# hi\n\nbody"), 0o644)
	os.WriteFile(filepath.Join(dir, "posts", "clip.bin"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(dir, "posts", "artifacts", "clip.json"), []byte("{}"), 0o644)

	state := &State{WorkspaceDir: dir}
	items, err := state.listWorkspaceLibraryItems("feed", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Path != "posts/note.md" {
		t.Fatalf("expected only note.md to survive feed filtering, got %+v", items)
	}
}
