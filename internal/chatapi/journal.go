package chatapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HandleJournalText answers POST /api/journal/text, saving a Markdown
// note into the workspace's text journal tree and best-effort mirroring
// its metadata into the journal collection.
func (s *State) HandleJournalText(w http.ResponseWriter, r *http.Request) {
	if !s.requirePairing(w, r, "Journal text") {
		return
	}

	var body struct {
		Title   string   `json:"title"`
		Content string   `json:"content"`
		Source  string   `json:"source"`
		Tags    []string `json:"tags"`
	}
	if !decodeJSONBody(w, r, &body) {
		return
	}
	content := strings.TrimSpace(body.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	title := strings.TrimSpace(body.Title)
	if title == "" {
		title = "Journal entry"
	}
	source := strings.TrimSpace(body.Source)
	if source == "" {
		source = "mobile"
	}

	relPath := textJournalRelPath(title, time.Now().UTC())
	absPath := filepath.Join(s.WorkspaceDir, relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create journal directory: "+err.Error())
		return
	}
	fileBody := fmt.Sprintf("# %s\n\n%s\n", title, content)
	if err := os.WriteFile(absPath, []byte(fileBody), 0o644); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save journal note: "+err.Error())
		return
	}

	record := s.createJournalEntryMetadata(r, relPath, title, content, source, body.Tags)

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"path":     relPath,
		"title":    title,
		"metadata": record,
	})
}

func (s *State) createJournalEntryMetadata(r *http.Request, relPath, title, content, source string, tags []string) any {
	if s.Store == nil || s.JournalCollection == "" {
		return nil
	}
	record, err := s.Store.Create(r.Context(), s.JournalCollection, map[string]any{
		"path":            relPath,
		"title":           title,
		"preview":         previewText(content, 240),
		"source":          source,
		"tags":            tags,
		"createdAtClient": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil
	}
	return json.RawMessage(record)
}

func previewText(s string, maxLen int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= maxLen {
		return string(r)
	}
	return string(r[:maxLen]) + "..."
}

// HandleLibraryText answers GET /api/library/text?path=..., reading a
// sandboxed text file back out of the workspace.
func (s *State) HandleLibraryText(w http.ResponseWriter, r *http.Request) {
	if !s.requirePairing(w, r, "Library text") {
		return
	}
	requested := r.URL.Query().Get("path")
	absPath, ok := resolveWorkspaceTextPath(s.WorkspaceDir, requested)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid text path")
		return
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		writeError(w, http.StatusNotFound, "Failed to read text file: "+err.Error())
		return
	}
	rel, err := filepath.Rel(s.WorkspaceDir, absPath)
	if err != nil {
		rel = requested
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": filepath.ToSlash(rel), "content": string(content)})
}

// HandleLibrarySaveText answers POST /api/library/save-text, writing a
// sandboxed text file into the workspace.
func (s *State) HandleLibrarySaveText(w http.ResponseWriter, r *http.Request) {
	if !s.requirePairing(w, r, "Library save") {
		return
	}
	var body struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if !decodeJSONBody(w, r, &body) {
		return
	}
	absPath, ok := resolveWorkspaceTextPath(s.WorkspaceDir, body.Path)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid text path")
		return
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create directory: "+err.Error())
		return
	}
	if err := os.WriteFile(absPath, []byte(body.Content), 0o644); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save text file: "+err.Error())
		return
	}
	rel, err := filepath.Rel(s.WorkspaceDir, absPath)
	if err != nil {
		rel = body.Path
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "path": filepath.ToSlash(rel)})
}
