package chatapi

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

const thumbnailDirName = ".thumbs"
const thumbnailMaxDim = 256

// thumbnailRelPath derives the sibling thumbnail path for a media
// upload's relative path: journals/media/image/.../name.jpg lands its
// thumbnail at journals/media/.thumbs/.../name.jpg.
func thumbnailRelPath(mediaRelPath string) string {
	dir, name := filepath.Split(mediaRelPath)
	sub := ""
	if rel, err := filepath.Rel(journalMediaDir, filepath.Clean(dir)); err == nil {
		if parts := strings.SplitN(filepath.ToSlash(rel), "/", 2); len(parts) == 2 {
			sub = filepath.FromSlash(parts[1])
		}
	}
	return filepath.Join(journalMediaDir, thumbnailDirName, sub, thumbnailFileName(name))
}

func thumbnailFileName(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)] + ".jpg"
}

// generateThumbnail writes a best-effort 256px-max JPEG thumbnail next to
// an uploaded image, given the workspace root and the upload's
// workspace-relative path. Any failure is swallowed: a missing thumbnail
// must never block the upload's happy path.
func generateThumbnail(workspaceDir, mediaRelPath string) {
	absPath := filepath.Join(workspaceDir, mediaRelPath)
	img, err := imaging.Open(absPath, imaging.AutoOrientation(true))
	if err != nil {
		slog.Debug("chatapi: thumbnail decode failed", "path", absPath, "err", err)
		return
	}

	thumb := imaging.Fit(img, thumbnailMaxDim, thumbnailMaxDim, imaging.Lanczos)

	thumbAbsPath := filepath.Join(workspaceDir, thumbnailRelPath(mediaRelPath))
	if err := os.MkdirAll(filepath.Dir(thumbAbsPath), 0o755); err != nil {
		slog.Debug("chatapi: thumbnail mkdir failed", "path", thumbAbsPath, "err", err)
		return
	}
	if err := imaging.Save(thumb, thumbAbsPath); err != nil {
		slog.Debug("chatapi: thumbnail save failed", "path", thumbAbsPath, "err", err)
	}
}
