package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nextlevelbuilder/agentgate/internal/channels"
	"github.com/nextlevelbuilder/agentgate/internal/pairing"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *State) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *State) handleMetrics(w http.ResponseWriter, r *http.Request) {
	renderer, ok := s.Observer.(interface{ Render() string })
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, renderer.Render())
}

// handlePair redeems a one-time pairing code for a bearer token. Mirrors
// the original's rate-limit -> code-check -> persist-tokens precedence.
func (s *State) handlePair(w http.ResponseWriter, r *http.Request) {
	rateKey := clientKeyFromRequest(r, s.TrustForwardedHeaders)
	if !s.RateLimiter.AllowPair(rateKey) {
		writeError(w, http.StatusTooManyRequests, "Too many pairing attempts, slow down")
		return
	}

	code := r.Header.Get("X-Pairing-Code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "Missing X-Pairing-Code header")
		return
	}

	token, err := s.Pairing.TryPair(code, rateKey)
	if err != nil {
		if lockout, ok := err.(*pairing.LockoutError); ok {
			if s.Audit != nil {
				s.Audit.RecordPairingAttempt(r.Context(), rateKey, false)
			}
			w.Header().Set("Retry-After", strconv.Itoa(lockout.RetryAfterSecs))
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":       "Too many failed attempts, try again later",
				"retry_after": lockout.RetryAfterSecs,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "Pairing failed")
		return
	}
	if token == "" {
		if s.Audit != nil {
			s.Audit.RecordPairingAttempt(r.Context(), rateKey, false)
		}
		writeError(w, http.StatusForbidden, "Invalid pairing code")
		return
	}
	if s.Audit != nil {
		s.Audit.RecordPairingAttempt(r.Context(), rateKey, true)
	}

	persisted := true
	if s.PersistTokens != nil {
		if err := s.PersistTokens(s.Pairing.Tokens()); err != nil {
			persisted = false
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"paired":    true,
		"persisted": persisted,
		"token":     token,
	})
}

// handlePairNewCode mints a fresh pairing code, requiring an already-valid
// bearer token so an unauthenticated caller cannot invalidate an in-flight
// pairing attempt.
func (s *State) handlePairNewCode(w http.ResponseWriter, r *http.Request) {
	if !s.Pairing.IsAuthenticated(bearerToken(r)) {
		writeError(w, http.StatusUnauthorized, "Missing or invalid bearer token")
		return
	}
	code, err := s.Pairing.RegenerateCode()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to mint pairing code")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"code": code})
}

// handleWebhook is the admission chain for every inbound delivery: rate
// limit, then pairing bearer auth (when required), then -- only when a
// channel is addressed -- that channel's signature as an additional proof,
// then the webhook secret, then idempotency, then dispatch.
//
// With no channel addressed, POST /webhook is the generic webhook: body
// {"message": "..."} goes straight to the agent and the reply comes back
// flat as {response, model}, matching the documented default contract.
// Addressing a channel (via ?channel= or X-Channel) additionally routes
// through that channel's payload parser and send path.
func (s *State) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.Observer.AgentStart("webhook")
	defer func() { s.Observer.RequestLatency("webhook", time.Since(start)) }()

	rateKey := clientKeyFromRequest(r, s.TrustForwardedHeaders)
	if !s.RateLimiter.AllowWebhook(rateKey) {
		writeError(w, http.StatusTooManyRequests, "Too many webhook deliveries, slow down")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		bodyReadError(w, err)
		return
	}

	if !s.Pairing.IsAuthenticated(bearerToken(r)) {
		writeError(w, http.StatusUnauthorized, "Missing or invalid bearer token")
		return
	}

	channelName := r.URL.Query().Get("channel")
	if channelName == "" {
		channelName = r.Header.Get("X-Channel")
	}

	var ch channels.Channel
	if channelName != "" {
		found, known := s.Channels[channelName]
		if !known || !found.Configured() {
			writeError(w, http.StatusNotFound, "Unknown or unconfigured channel")
			return
		}
		if !found.VerifySignature(r.Header, body) {
			writeError(w, http.StatusUnauthorized, "Invalid webhook signature")
			return
		}
		ch = found
	}

	if s.Config.Gateway.WebhookSecretHash != "" {
		presented := r.Header.Get("X-Webhook-Secret")
		if !s.Config.VerifyWebhookSecret(presented) {
			writeError(w, http.StatusUnauthorized, "Invalid webhook secret")
			return
		}
	}

	idempotencyKey := r.Header.Get("X-Idempotency-Key")
	if idempotencyKey != "" {
		dedupeScope := channelName
		if dedupeScope == "" {
			dedupeScope = "webhook"
		}
		if !s.Idempotency.RecordIfNew(dedupeScope + ":" + idempotencyKey) {
			writeJSON(w, http.StatusOK, map[string]any{"status": "duplicate", "idempotent": true})
			return
		}
	}

	if ch == nil {
		s.handleGenericWebhook(w, r, body)
		return
	}
	s.handleChannelWebhook(w, r, ch, body)
}

func (s *State) handleGenericWebhook(w http.ResponseWriter, r *http.Request, body []byte) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed JSON payload")
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		writeError(w, http.StatusBadRequest, "Missing message field")
		return
	}

	s.Observer.LlmRequest(1)
	reply, err := s.Agent.Process(r.Context(), nil, payload.Message)
	if err != nil {
		s.Observer.LlmResponse(false, err.Error())
		s.Observer.Error("webhook", err)
		writeError(w, http.StatusInternalServerError, "LLM request failed")
		return
	}
	s.Observer.LlmResponse(true, "")
	s.Observer.AgentEnd("webhook")
	writeJSON(w, http.StatusOK, map[string]any{"response": reply, "model": s.Agent.Model()})
}

func (s *State) handleChannelWebhook(w http.ResponseWriter, r *http.Request, ch channels.Channel, body []byte) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed JSON payload")
		return
	}

	messages, err := ch.ParseWebhookPayload(payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse webhook payload")
		return
	}
	if len(messages) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"status": "acknowledged"})
		return
	}

	responses := make([]map[string]any, 0, len(messages))
	for _, msg := range messages {
		s.Observer.LlmRequest(1)
		reply, err := s.Agent.Process(r.Context(), nil, msg.Text)
		if err != nil {
			s.Observer.LlmResponse(false, err.Error())
			s.Observer.Error("webhook", err)
			responses = append(responses, map[string]any{"error": "LLM request failed"})
			continue
		}
		s.Observer.LlmResponse(true, "")
		if sendErr := ch.Send(r.Context(), msg.SenderID, reply); sendErr != nil {
			s.Observer.Error("webhook.send", sendErr)
		}
		responses = append(responses, map[string]any{"response": reply, "model": s.Agent.Model()})
	}

	s.Observer.AgentEnd("webhook")
	writeJSON(w, http.StatusOK, map[string]any{"results": responses})
}
