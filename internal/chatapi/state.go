// Package chatapi implements the chat/media/journal/library REST surface
// the mobile and desktop clients use once paired: listing and sending chat
// messages, uploading media into the workspace journal, saving and reading
// text notes, and streaming files back out. Every handler here requires a
// paired bearer token; the webhook admission chain in internal/gateway is
// a separate, channel-specific concern.
package chatapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nextlevelbuilder/agentgate/internal/docstore"
	"github.com/nextlevelbuilder/agentgate/internal/pairing"
)

// State is the dependency set every chatapi handler closes over.
type State struct {
	Store             *docstore.Client
	ChatCollection    string
	JournalCollection string
	WorkspaceDir      string
	Pairing           *pairing.Guard
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// requirePairing mirrors pairing_auth_error: every chatapi route is
// unconditionally bearer-gated once pairing is required, regardless of
// which channel or admission path a webhook would have used.
func (s *State) requirePairing(w http.ResponseWriter, r *http.Request, scope string) bool {
	if s.Pairing == nil || !s.Pairing.RequirePairing() {
		return true
	}
	token := bearerToken(r)
	if s.Pairing.IsAuthenticated(token) {
		return true
	}
	writeError(w, http.StatusUnauthorized, "Unauthorized — pair first via POST /pair, then send Authorization: Bearer <token>")
	return false
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(auth, prefix) {
		return auth[len(prefix):]
	}
	return ""
}
