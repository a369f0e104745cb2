package sidecar

import "net"

// ResolveLocalLANIP finds the local outbound IP address by opening a UDP
// "connection" to a public address and reading back the chosen source IP —
// no packets are actually sent. Used to print a LAN address a phone on the
// same network can reach for manual pairing.
func ResolveLocalLANIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", net.InvalidAddrError("unexpected local address type")
	}
	return addr.IP.String(), nil
}
