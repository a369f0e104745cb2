package chatapi

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

type libraryScope int

const (
	scopeAll libraryScope = iota
	scopeJournal
	scopeFeed
)

type libraryItem struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	Title        string `json:"title"`
	Kind         string `json:"kind"`
	SizeBytes    int64  `json:"sizeBytes"`
	ModifiedAt   int64  `json:"modifiedAt"`
	PreviewText  string `json:"previewText"`
	MediaURL     string `json:"mediaUrl,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// HandleLibraryItems answers GET /api/library/items?scope=&limit=.
func (s *State) HandleLibraryItems(w http.ResponseWriter, r *http.Request) {
	if !s.requirePairing(w, r, "Library list") {
		return
	}
	scope := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("scope")))
	limit := 200
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	limit = clamp(limit, 1, 1000)

	items, err := s.listWorkspaceLibraryItems(scope, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list library items: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *State) listWorkspaceLibraryItems(scope string, limit int) ([]libraryItem, error) {
	var roots []string
	var requestedScope libraryScope
	switch scope {
	case "journal":
		roots = []string{filepath.Join(s.WorkspaceDir, "journals")}
		requestedScope = scopeJournal
	case "feed":
		roots = []string{
			filepath.Join(s.WorkspaceDir, "journals", "processed"),
			filepath.Join(s.WorkspaceDir, "posts"),
		}
		requestedScope = scopeFeed
	default:
		roots = []string{
			filepath.Join(s.WorkspaceDir, "journals"),
			filepath.Join(s.WorkspaceDir, "posts"),
		}
		requestedScope = scopeAll
	}

	var items []libraryItem
	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			continue
		}
		if err := collectLibraryItemsRecursive(s.WorkspaceDir, root, &items, limit, requestedScope); err != nil {
			return nil, err
		}
		if len(items) >= limit {
			break
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ModifiedAt > items[j].ModifiedAt })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

var libraryKindByExt = map[string]string{
	".md": "text", ".txt": "text", ".json": "text", ".srt": "text",
	".mp3": "audio", ".wav": "audio", ".m4a": "audio", ".aac": "audio", ".flac": "audio",
	".mp4": "video", ".mov": "video", ".webm": "video", ".mkv": "video",
	".jpg": "image", ".jpeg": "image", ".png": "image", ".webp": "image",
}

// collectLibraryItemsRecursive walks dir, classifying every file by
// extension and applying the feed-scope exclusion rules (hide pipeline
// artifacts, captions, and raw subtitle/JSON siblings from the curated
// feed view) exactly as the library listing this is grounded on does.
func collectLibraryItemsRecursive(workspaceDir, dir string, out *[]libraryItem, limit int, requestedScope libraryScope) error {
	if len(*out) >= limit {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil // unreadable directory is skipped, not fatal
	}
	for _, entry := range entries {
		if len(*out) >= limit {
			break
		}
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if err := collectLibraryItemsRecursive(workspaceDir, path, out, limit, requestedScope); err != nil {
				return err
			}
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		ext := strings.ToLower(filepath.Ext(path))
		kind, known := libraryKindByExt[ext]
		if !known {
			continue // hide unknown binaries for a cleaner mobile UI
		}

		rel, err := filepath.Rel(workspaceDir, path)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		relLower := strings.ToLower(rel)

		isFeedItem := strings.HasPrefix(rel, "posts/") || strings.HasPrefix(rel, "journals/processed/")
		switch requestedScope {
		case scopeFeed:
			if !isFeedItem {
				continue
			}
		case scopeJournal:
			if isFeedItem {
				continue
			}
		}
		if isFeedItem {
			if strings.Contains(relLower, "/artifacts/") ||
				strings.Contains(relLower, "/pipeline/") ||
				strings.HasSuffix(relLower, ".srt") ||
				strings.HasSuffix(relLower, ".json") ||
				strings.HasSuffix(relLower, ".caption.txt") {
				continue
			}
		}

		title := strings.ReplaceAll(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), "_", " ")
		if title == "" {
			title = "untitled"
		}
		preview := ""
		if kind == "text" {
			if content, err := os.ReadFile(path); err == nil {
				preview = previewText(string(content), 240)
			}
		}
		item := libraryItem{
			ID:          rel,
			Path:        rel,
			Title:       title,
			Kind:        kind,
			SizeBytes:   info.Size(),
			ModifiedAt:  info.ModTime().Unix(),
			PreviewText: preview,
		}
		if kind == "audio" || kind == "video" || kind == "image" {
			item.MediaURL = "/api/media/" + rel
		}
		*out = append(*out, item)
	}
	return nil
}
