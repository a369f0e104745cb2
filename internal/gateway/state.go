// Package gateway builds the HTTP admission layer: rate limiting,
// pairing-token enforcement, webhook signature/secret checks, and the
// chat/webhook routes that sit behind them.
package gateway

import (
	"net"
	"net/http"
	"strings"

	"github.com/nextlevelbuilder/agentgate/internal/agent"
	"github.com/nextlevelbuilder/agentgate/internal/channels"
	"github.com/nextlevelbuilder/agentgate/internal/config"
	"github.com/nextlevelbuilder/agentgate/internal/idempotency"
	"github.com/nextlevelbuilder/agentgate/internal/observability"
	"github.com/nextlevelbuilder/agentgate/internal/pairing"
	"github.com/nextlevelbuilder/agentgate/internal/ratelimit"
	"github.com/nextlevelbuilder/agentgate/internal/store/audit"
)

// State is the shared dependency set every handler closes over, built once
// in cmd/agentgate's gateway command.
type State struct {
	Config                *config.Config
	Pairing               *pairing.Guard
	RateLimiter           *ratelimit.Gateway
	Idempotency           *idempotency.Store
	Agent                 *agent.Agent
	Observer              observability.Observer
	Channels              map[string]channels.Channel
	TrustForwardedHeaders bool
	PersistTokens         func([]string) error
	// Audit is optional; when nil, pairing attempts simply aren't logged.
	Audit *audit.Store
}

// clientKeyFromRequest derives the rate-limit bucket key for a request: the
// first valid IP from X-Forwarded-For/X-Real-IP when forwarded headers are
// trusted, falling back to the TCP peer address otherwise.
func clientKeyFromRequest(r *http.Request, trustForwardedHeaders bool) string {
	if trustForwardedHeaders {
		if ip := forwardedClientIP(r.Header); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "unknown"
	}
	return host
}

func forwardedClientIP(h http.Header) string {
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		for _, candidate := range strings.Split(xff, ",") {
			if ip := parseClientIP(candidate); ip != "" {
				return ip
			}
		}
	}
	return parseClientIP(h.Get("X-Real-IP"))
}

func parseClientIP(value string) string {
	value = strings.Trim(strings.TrimSpace(value), `"`)
	if value == "" {
		return ""
	}
	if ip := net.ParseIP(value); ip != nil {
		return ip.String()
	}
	if host, _, err := net.SplitHostPort(value); err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip.String()
		}
	}
	trimmed := strings.Trim(value, "[]")
	if ip := net.ParseIP(trimmed); ip != nil {
		return ip.String()
	}
	return ""
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(auth, prefix) {
		return auth[len(prefix):]
	}
	return ""
}
