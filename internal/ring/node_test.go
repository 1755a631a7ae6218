package ring

import (
	"net"
	"testing"
)

func TestHashEndpointDeterministic(t *testing.T) {
	ip := net.ParseIP("127.0.0.1")
	a := HashEndpoint(ip, 4000)
	b := HashEndpoint(ip, 4000)
	if a != b {
		t.Fatalf("HashEndpoint must be deterministic: %v != %v", a, b)
	}
	c := HashEndpoint(ip, 4001)
	if a == c {
		t.Fatalf("different ports must hash to different ids (in practice)")
	}
}

func TestNodeFromAddr(t *testing.T) {
	n, err := NodeFromAddr("127.0.0.1:4000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Addr() != "127.0.0.1:4000" {
		t.Fatalf("Addr() = %q, want 127.0.0.1:4000", n.Addr())
	}
	if n.ID != HashEndpoint(net.ParseIP("127.0.0.1"), 4000) {
		t.Fatalf("id not derived from endpoint")
	}
}

func TestNodeIsZero(t *testing.T) {
	var n Node
	if !n.IsZero() {
		t.Fatalf("zero-value Node must report IsZero")
	}
	n, _ = NodeFromAddr("127.0.0.1:4000")
	if n.IsZero() {
		t.Fatalf("resolved Node must not report IsZero")
	}
}
