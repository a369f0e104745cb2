package chatapi

import (
	"encoding/json"
	"errors"
	"net/http"
)

// decodeJSONBody decodes a JSON request body into dst, writing 413 instead
// of the usual 400 when the body was rejected for exceeding the route's
// http.MaxBytesReader cap.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "Malformed JSON body")
		return false
	}
	return true
}

// mediaBodyCapBytes bounds the media upload route's request body. It is
// applied here (rather than relying on the gateway's small-body core cap)
// since a journal media upload legitimately needs far more headroom than
// any other route.
const mediaBodyCapBytes = 1 << 30 // 1 GiB

// BuildMux wires the chat/journal/library routes, all requiring a paired
// bearer token. Kept separate from the media router so the core router
// can stay on a small body-size cap.
func (s *State) BuildMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/chat/messages", s.HandleChatList)
	mux.HandleFunc("POST /api/chat/messages", s.HandleChatSend)
	mux.HandleFunc("POST /api/journal/text", s.HandleJournalText)
	mux.HandleFunc("GET /api/library/items", s.HandleLibraryItems)
	mux.HandleFunc("GET /api/library/text", s.HandleLibraryText)
	mux.HandleFunc("POST /api/library/save-text", s.HandleLibrarySaveText)
	return mux
}

// BuildMediaMux wires the larger-body-budget media routes: upload and
// stream-back.
func (s *State) BuildMediaMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/media/upload", func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, mediaBodyCapBytes)
		s.HandleMediaUpload(w, r)
	})
	mux.HandleFunc("GET /api/media/", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path[len("/api/media/"):]
		s.HandleMediaStream(w, r, path)
	})
	return mux
}
