package chatapi

import (
	"path/filepath"
	"strings"
	"time"
)

const journalMediaDir = "journals/media"
const journalTextDir = "journals/text"

// allowedTextRoots is the sandbox allow-list for library text reads and
// writes: the first path component under the workspace must be one of
// these, or the request is rejected.
var allowedTextRoots = []string{"journals", "memory", "state", "posts", "outputs", "artifacts"}

// safeFileName replaces each character that is not ASCII alphanumeric, '.',
// '_' or '-' with its own '_', trims leading and trailing '_', and caps the
// result at 128 runes. An empty result falls back to "upload.bin".
func safeFileName(name string) string {
	var b strings.Builder
	for _, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '.', ch == '_', ch == '-':
			b.WriteRune(ch)
		default:
			b.WriteRune('_')
		}
	}
	trimmed := strings.Trim(b.String(), "_")
	if trimmed == "" {
		return "upload.bin"
	}
	r := []rune(trimmed)
	if len(r) > 128 {
		r = r[:128]
	}
	return string(r)
}

func mediaKindDir(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "audio":
		return "audio"
	case "video":
		return "video"
	case "image":
		return "image"
	default:
		return "files"
	}
}

// mediaStorageRelPath builds the workspace-relative path a media upload
// lands at: journals/media/<kind>/<yyyy>/<mm>/<dd>/<hhmmss>_<safe-name>.
func mediaStorageRelPath(kind, originalName string, now time.Time) string {
	return filepath.Join(
		journalMediaDir,
		mediaKindDir(kind),
		now.Format("2006"),
		now.Format("01"),
		now.Format("02"),
		now.Format("150405")+"_"+safeFileName(originalName),
	)
}

// textJournalRelPath builds the workspace-relative path a journal note
// lands at: journals/text/<yyyy>/<mm>/<dd>/<hhmmss>_<safe-title>.md.
func textJournalRelPath(title string, now time.Time) string {
	stem := strings.TrimRight(safeFileName(title), ".")
	if stem == "" {
		stem = "journal"
	}
	return filepath.Join(
		journalTextDir,
		now.Format("2006"),
		now.Format("01"),
		now.Format("02"),
		now.Format("150405")+"_"+stem+".md",
	)
}

// resolveWorkspaceMediaPath resolves a client-supplied path into an
// absolute path under workspaceDir/journals, refusing anything that
// escapes the workspace or the journals subtree (symlink traversal,
// "../" components, absolute paths).
func resolveWorkspaceMediaPath(workspaceDir, requested string) (string, bool) {
	trimmed := strings.TrimPrefix(requested, "/")
	if trimmed == "" {
		return "", false
	}
	candidate := filepath.Join(workspaceDir, trimmed)
	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return "", false
	}
	workspaceResolved, err := filepath.EvalSymlinks(workspaceDir)
	if err != nil {
		return "", false
	}
	if !isWithin(resolved, workspaceResolved) {
		return "", false
	}
	if !isWithin(resolved, filepath.Join(workspaceResolved, "journals")) {
		return "", false
	}
	return resolved, true
}

// resolveWorkspaceTextPath resolves a client-supplied relative path for a
// library text read/write into an absolute path, requiring the first path
// component to be one of allowedTextRoots. Unlike media paths, the target
// file need not exist yet (used for both read and save).
func resolveWorkspaceTextPath(workspaceDir, requested string) (string, bool) {
	trimmed := strings.TrimPrefix(requested, "/")
	if trimmed == "" {
		return "", false
	}
	candidate := filepath.Join(workspaceDir, trimmed)
	parent := filepath.Dir(candidate)
	parentResolved, err := filepath.EvalSymlinks(parent)
	if err != nil {
		parentResolved = parent
	}
	workspaceResolved, err := filepath.EvalSymlinks(workspaceDir)
	if err != nil {
		workspaceResolved = workspaceDir
	}
	if !isWithin(parentResolved, workspaceResolved) {
		return "", false
	}
	rel, err := filepath.Rel(workspaceResolved, parentResolved)
	if err != nil {
		return "", false
	}
	first := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	allowed := false
	for _, root := range allowedTextRoots {
		if first == root {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", false
	}
	return candidate, true
}

func isWithin(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}
