package ring

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
)

// Node is an immutable routing descriptor: the unit of routing knowledge
// exchanged over the wire. "Updating the successor" always means storing
// a new Node value, never mutating one in place.
type Node struct {
	ID   ID
	IP   net.IP // always a 4-byte (IPv4) address; IPv6 is out of scope
	Port uint16
}

// HashEndpoint derives a node id from a network endpoint. This is the
// abstract hash oracle spec.md places out of scope: SHA-1 of
// ip_big_endian||port_big_endian, truncated to its first 8 bytes.
func HashEndpoint(ip net.IP, port uint16) ID {
	ip4 := ip.To4()
	if ip4 == nil {
		ip4 = net.IPv4zero.To4()
	}
	buf := make([]byte, 6)
	copy(buf[0:4], ip4)
	binary.BigEndian.PutUint16(buf[4:6], port)
	sum := sha1.Sum(buf)
	return ID(binary.BigEndian.Uint64(sum[:8]))
}

// NewNode builds a Node, deriving its id from ip and port.
func NewNode(ip net.IP, port uint16) Node {
	return Node{ID: HashEndpoint(ip, port), IP: ip.To4(), Port: port}
}

// NodeFromAddr resolves a "host:port" string into a Node, deriving its id
// from the resolved endpoint the way cmd/node derives self's id.
func NodeFromAddr(addr string) (Node, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return Node{}, fmt.Errorf("ring: invalid address %q: %w", addr, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Node{}, fmt.Errorf("ring: invalid port %q: %w", portStr, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return Node{}, fmt.Errorf("ring: cannot resolve host %q", host)
		}
		ip = ips[0]
	}
	return NewNode(ip, uint16(port)), nil
}

// Addr renders the node's endpoint as "host:port".
func (n Node) Addr() string {
	return net.JoinHostPort(n.IP.String(), strconv.Itoa(int(n.Port)))
}

// UDPAddr resolves the node's endpoint into a *net.UDPAddr for transport.
func (n Node) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: n.IP, Port: int(n.Port)}
}

// Equal compares two descriptors by identifier, the only thing that
// makes two node values "the same peer" for routing purposes.
func (n Node) Equal(o Node) bool { return n.ID == o.ID }

// IsZero reports whether n is the empty descriptor (no node known).
func (n Node) IsZero() bool { return n.IP == nil }

func (n Node) String() string {
	if n.IsZero() {
		return "<none>"
	}
	return fmt.Sprintf("%s@%s", n.ID, n.Addr())
}
