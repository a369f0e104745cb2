package gateway

import (
	"context"
	"fmt"
	"net"

	"tailscale.com/tsnet"
)

// TunnelProvider hands back a net.Listener for the gateway to serve on,
// letting a non-loopback bind go through an operator-approved tunnel
// instead of a raw public socket.
type TunnelProvider interface {
	Listen(ctx context.Context, network, addr string) (net.Listener, error)
	Close() error
}

// NoneTunnel is the default provider: it refuses to listen on anything,
// forcing callers through the explicit public-bind-allowed escape hatch
// instead of silently tunneling.
type NoneTunnel struct{}

func (NoneTunnel) Listen(context.Context, string, string) (net.Listener, error) {
	return nil, fmt.Errorf("gateway: no tunnel provider configured")
}
func (NoneTunnel) Close() error { return nil }

// TsnetTunnel exposes the gateway on the operator's tailnet via tsnet,
// rather than binding a real public interface.
type TsnetTunnel struct {
	server *tsnet.Server
}

// NewTsnetTunnel creates (but does not yet start) a tsnet-backed tunnel.
func NewTsnetTunnel(hostname, stateDir, authKey string, ephemeral bool) *TsnetTunnel {
	return &TsnetTunnel{server: &tsnet.Server{
		Hostname:  hostname,
		Dir:       stateDir,
		AuthKey:   authKey,
		Ephemeral: ephemeral,
	}}
}

func (t *TsnetTunnel) Listen(ctx context.Context, network, addr string) (net.Listener, error) {
	return t.server.Listen(network, addr)
}

func (t *TsnetTunnel) Close() error {
	return t.server.Close()
}

// IsPublicBind reports whether host is a non-loopback, non-localhost
// address the gateway should refuse to bind directly without an explicit
// operator opt-in or a tunnel provider.
func IsPublicBind(host string) bool {
	if host == "" || host == "localhost" {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return true
	}
	return !ip.IsLoopback()
}
