package chatapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

const chatListPageSize = 100

// HandleChatList answers GET /api/chat/messages?threadId=...&limit=...,
// paging through the collection and filtering to the requested thread
// client-side the way fetch_chat_thread_messages does (the DocStore REST
// API has no native equal-filter guarantee across every backing store).
func (s *State) HandleChatList(w http.ResponseWriter, r *http.Request) {
	if !s.requirePairing(w, r, "Chat API") {
		return
	}
	if s.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "Chat storage unavailable")
		return
	}

	threadID := strings.TrimSpace(r.URL.Query().Get("threadId"))
	if threadID == "" {
		threadID = "default"
	}
	limit := 200
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	limit = clamp(limit, 1, 500)

	items, err := s.fetchChatThreadMessages(r.Context(), threadID, limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *State) fetchChatThreadMessages(ctx context.Context, threadID string, limit int) ([]json.RawMessage, error) {
	var out []json.RawMessage
	for page := 1; page <= 5; page++ {
		result, err := s.Store.ListPage(ctx, s.ChatCollection, page, chatListPageSize, "")
		if err != nil {
			return nil, err
		}
		for _, raw := range result.Items {
			var record map[string]any
			if err := json.Unmarshal(raw, &record); err != nil {
				continue
			}
			if id, ok := record["threadId"].(string); ok && id == threadID {
				out = append(out, raw)
			}
		}
		if len(result.Items) < chatListPageSize || len(out) >= limit {
			break
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return recordTimestamp(out[i]) < recordTimestamp(out[j])
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func recordTimestamp(raw json.RawMessage) string {
	var record struct {
		CreatedAtClient string `json:"createdAtClient"`
		Created         string `json:"created"`
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		return ""
	}
	if record.CreatedAtClient != "" {
		return record.CreatedAtClient
	}
	return record.Created
}

// HandleChatSend answers POST /api/chat/messages, enqueuing a new pending
// user message that the chat worker's poll loop will answer.
func (s *State) HandleChatSend(w http.ResponseWriter, r *http.Request) {
	if !s.requirePairing(w, r, "Chat API") {
		return
	}
	if s.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "Chat storage unavailable")
		return
	}

	var body struct {
		ThreadID string `json:"threadId"`
		Content  string `json:"content"`
	}
	if !decodeJSONBody(w, r, &body) {
		return
	}
	threadID := strings.TrimSpace(body.ThreadID)
	content := strings.TrimSpace(body.Content)
	if threadID == "" || content == "" {
		writeError(w, http.StatusBadRequest, "threadId and content are required")
		return
	}

	record, err := s.Store.Create(r.Context(), s.ChatCollection, map[string]any{
		"threadId":        threadID,
		"role":            "user",
		"content":         content,
		"status":          "pending",
		"source":          "gateway-ui",
		"createdAtClient": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(record))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
