package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nextlevelbuilder/agentgate/internal/chatapi"
	"github.com/nextlevelbuilder/agentgate/internal/config"
)

const rateLimitWindowSecs = 60

// coreBodyCapBytes bounds every non-media request body; mediaBodyCapBytes
// (wired in internal/chatapi) bounds the upload route separately since a
// journal media upload legitimately needs far more headroom.
const coreBodyCapBytes = 64 << 10 // 64 KiB

const (
	coreRequestTimeout = 30 * time.Second
	mediaRequestTimeout = 30 * time.Minute
)

// BuildMux constructs the gateway's full route table: admission routes
// (health/metrics/pair/webhook) and the paired chat/journal/library routes
// from internal/chatapi on a small-body core router, and the paired media
// routes behind a separate, larger-body media router — the way the teacher
// layers two routers with different middleware stacks instead of one
// one-size-fits-all limit. Core routes get a 30s deadline; the media
// upload route gets a much longer one since a large file can legitimately
// take a while to stream in.
func BuildMux(state *State, chatState *chatapi.State) http.Handler {
	core := http.NewServeMux()
	core.HandleFunc("GET /health", state.handleHealth)
	core.HandleFunc("GET /metrics", state.handleMetrics)
	core.HandleFunc("POST /pair", state.handlePair)
	core.HandleFunc("POST /pair/new-code", state.handlePairNewCode)
	core.HandleFunc("POST /webhook", state.handleWebhook)
	core.Handle("/api/chat/", chatState.BuildMux())
	core.Handle("/api/journal/", chatState.BuildMux())
	core.Handle("/api/library/", chatState.BuildMux())

	top := http.NewServeMux()
	top.Handle("/", withTimeout(withBodyLimit(core, coreBodyCapBytes), coreRequestTimeout))
	top.Handle("/api/media/", withTimeout(chatState.BuildMediaMux(), mediaRequestTimeout))
	return top
}

func withBodyLimit(next http.Handler, maxBytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		next.ServeHTTP(w, r)
	})
}

// withTimeout enforces a hard per-request deadline, emitting 408 if the
// handler hasn't written a response by the time it expires. Modeled on
// net/http.TimeoutHandler's own run-in-goroutine-then-race approach, with
// a 408 in place of TimeoutHandler's fixed 503 to match this gateway's
// error taxonomy.
func withTimeout(next http.Handler, d time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()

		tw := &timeoutWriter{ResponseWriter: w}
		done := make(chan struct{})
		go func() {
			defer close(done)
			next.ServeHTTP(tw, r.WithContext(ctx))
		}()

		select {
		case <-done:
		case <-ctx.Done():
			tw.mu.Lock()
			if !tw.wroteHeader {
				tw.wroteHeader = true
				writeError(tw.ResponseWriter, http.StatusRequestTimeout, "Request timed out")
			}
			tw.mu.Unlock()
		}
	})
}

// timeoutWriter lets withTimeout observe whether the wrapped handler has
// already started writing a response before it claims the race.
type timeoutWriter struct {
	http.ResponseWriter
	mu          sync.Mutex
	wroteHeader bool
}

func (tw *timeoutWriter) WriteHeader(status int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.wroteHeader {
		return
	}
	tw.wroteHeader = true
	tw.ResponseWriter.WriteHeader(status)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	tw.wroteHeader = true
	tw.mu.Unlock()
	return tw.ResponseWriter.Write(b)
}

// bodyReadError maps an oversized-body read failure to 413, otherwise 400.
func bodyReadError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, "Failed to read request body")
}

// Server wraps an http.Server plus the optional tunnel it is bound
// through, so Shutdown can tear both down in the right order.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	tunnel     TunnelProvider
}

// Start binds host:port (or routes through tunnel if the host is a
// non-loopback address) and begins serving in a background goroutine.
func Start(ctx context.Context, cfg *config.GatewayConfig, tunnel TunnelProvider, handler http.Handler) (*Server, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	if IsPublicBind(cfg.Host) && !cfg.PublicBindAllowed {
		if tunnel == nil {
			return nil, fmt.Errorf("gateway: refusing to bind public host %q without public_bind_allowed or a tunnel provider", cfg.Host)
		}
		listener, err := tunnel.Listen(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("gateway: tunnel listen failed: %w", err)
		}
		return serveOn(listener, tunnel, handler)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("gateway: listen failed: %w", err)
	}
	return serveOn(listener, NoneTunnel{}, handler)
}

func serveOn(listener net.Listener, tunnel TunnelProvider, handler http.Handler) (*Server, error) {
	httpServer := &http.Server{
		Handler: handler,
		// Only the slow-header DoS case is bounded at the server level;
		// per-route request deadlines (30s core, 30m media) are enforced
		// by withTimeout so the media upload route isn't cut short by a
		// blanket connection timeout.
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := &Server{httpServer: httpServer, listener: listener, tunnel: tunnel}
	go httpServer.Serve(listener)
	return srv, nil
}

// Addr returns the server's bound address, useful for tests that bind an
// ephemeral port.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Shutdown gracefully stops the HTTP server, then tears down the tunnel.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	if s.tunnel != nil {
		return s.tunnel.Close()
	}
	return nil
}

// StartTestServer binds an ephemeral loopback port, bypassing the public
// bind guard, for use by httptest-style integration tests.
func StartTestServer(handler http.Handler) (*Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	return serveOn(listener, NoneTunnel{}, handler)
}
