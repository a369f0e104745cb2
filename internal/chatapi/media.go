package chatapi

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HandleMediaUpload answers POST /api/media/upload?kind=&filename=&title=&source=.
// The request body is streamed straight to disk under the workspace's
// journal media tree; metadata is best-effort mirrored into the journal
// collection so the library view can find it.
func (s *State) HandleMediaUpload(w http.ResponseWriter, r *http.Request) {
	if !s.requirePairing(w, r, "Media upload") {
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	kind := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("kind")))
	if kind == "" {
		kind = inferMediaKindFromContentType(contentType)
	}
	source := strings.TrimSpace(r.URL.Query().Get("source"))
	if source == "" {
		source = "mobile"
	}
	title := strings.TrimSpace(r.URL.Query().Get("title"))

	originalName := r.URL.Query().Get("filename")
	if originalName == "" {
		originalName = r.Header.Get("X-File-Name")
	}
	if originalName == "" {
		originalName = "upload-" + uuid.NewString()
	}

	relPath := mediaStorageRelPath(kind, originalName, time.Now().UTC())
	absPath := filepath.Join(s.WorkspaceDir, relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create media directory: "+err.Error())
		return
	}

	file, err := os.Create(absPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create upload file: "+err.Error())
		return
	}
	written, copyErr := copyBody(file, r)
	file.Close()
	if copyErr != nil {
		os.Remove(absPath)
		var maxErr *http.MaxBytesError
		if errors.As(copyErr, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Upload stream error: "+copyErr.Error())
		return
	}

	if kind == "image" {
		generateThumbnail(s.WorkspaceDir, relPath) // best-effort, failures are non-fatal
	}

	var titlePtr *string
	if title != "" {
		titlePtr = &title
	}
	record, metaErr := s.upsertMediaAssetMetadata(r, relPath, contentType, kind, titlePtr, source, written)
	if metaErr != nil {
		record = nil // metadata mirroring is best-effort; the file is already saved
	}

	thumbURL := ""
	if kind == "image" {
		thumbURL = "/api/media/" + thumbnailRelPath(relPath)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"kind":        kind,
		"contentType": contentType,
		"bytes":       written,
		"path":        relPath,
		"title":       title,
		"thumbnailUrl": nonEmptyOrNil(thumbURL),
		"metadata":    record,
	})
}

// copyBody streams the request body to disk. The size cap itself is
// enforced upstream by the media mux's http.MaxBytesReader wrapping of
// r.Body, so io.Copy surfaces a *http.MaxBytesError once exceeded.
func copyBody(dst *os.File, r *http.Request) (int64, error) {
	return io.Copy(dst, r.Body)
}

func inferMediaKindFromContentType(contentType string) string {
	lower := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(lower, "audio/"):
		return "audio"
	case strings.HasPrefix(lower, "video/"):
		return "video"
	case strings.HasPrefix(lower, "image/"):
		return "image"
	default:
		return "file"
	}
}

func (s *State) upsertMediaAssetMetadata(r *http.Request, relPath, contentType, kind string, title *string, source string, bytesWritten int64) (any, error) {
	if s.Store == nil || s.JournalCollection == "" {
		return nil, nil
	}
	payload := map[string]any{
		"path":        relPath,
		"contentType": contentType,
		"kind":        kind,
		"source":      source,
		"bytes":       bytesWritten,
		"createdAtClient": time.Now().UTC().Format(time.RFC3339),
	}
	if title != nil {
		payload["title"] = *title
	}
	return s.Store.Create(r.Context(), s.JournalCollection, payload)
}

func nonEmptyOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// HandleMediaStream answers GET /api/media/{*path}, streaming a file back
// out of the workspace's journals tree.
func (s *State) HandleMediaStream(w http.ResponseWriter, r *http.Request, path string) {
	if !s.requirePairing(w, r, "Media stream") {
		return
	}
	absPath, ok := resolveWorkspaceMediaPath(s.WorkspaceDir, path)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid media path")
		return
	}
	info, err := os.Stat(absPath)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "Media file not found")
		return
	}
	http.ServeFile(w, r, absPath)
}
