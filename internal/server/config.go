package server

import (
	"fmt"
	"net"
)

// ListenUDP binds a UDP socket to bind:port. Address resolution beyond
// "parse what the CLI was given" is out of scope (spec §1 names address
// resolution helpers as an external collaborator); this replaces the
// pickIP/isPrivateIP interface-scanning logic, which guessed an
// advertised address from local interfaces when the operator didn't
// supply --addr explicitly.
func ListenUDP(bind string, port int) (*net.UDPConn, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(bind), Port: port}
	if addr.IP == nil {
		ips, err := net.LookupIP(bind)
		if err != nil || len(ips) == 0 {
			return nil, fmt.Errorf("server: cannot resolve bind address %q", bind)
		}
		addr.IP = ips[0]
	}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("server: listen %s: %w", addr, err)
	}
	return conn, nil
}
