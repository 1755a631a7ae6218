package node

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"chordnode/internal/ring"
	"chordnode/internal/routingtable"
	"chordnode/internal/transport"
	"chordnode/internal/wire"
)

// recordingSender captures every datagram sent and optionally decodes it
// for assertions, without touching a real socket.
type recordingSender struct {
	mu   sync.Mutex
	sent []sentPacket
}

type sentPacket struct {
	to   *net.UDPAddr
	data []byte
}

func (s *recordingSender) SendTo(addr *net.UDPAddr, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.sent = append(s.sent, sentPacket{to: addr, data: cp})
	return nil
}

func (s *recordingSender) last() sentPacket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[len(s.sent)-1]
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func mustNode(t *testing.T, addr string) ring.Node {
	t.Helper()
	n, err := ring.NodeFromAddr(addr)
	if err != nil {
		t.Fatalf("NodeFromAddr(%q): %v", addr, err)
	}
	return n
}

func newTestNode(t *testing.T, self ring.Node, succListSize int) (*Node, *recordingSender) {
	t.Helper()
	sender := &recordingSender{}
	rt := routingtable.New(self, succListSize)
	tr := transport.New(sender, time.Second)
	return New(self, rt, tr, sender), sender
}

func TestCreateRingLoneNode(t *testing.T) {
	self := mustNode(t, "127.0.0.1:4000")
	n, _ := newTestNode(t, self, 4)
	n.CreateRing()

	if got := n.RoutingTable().Successor(); !got.Equal(self) {
		t.Errorf("Successor() = %v, want self", got)
	}
	got, err := n.FindSuccessor(context.Background(), self.ID+42)
	if err != nil {
		t.Fatalf("FindSuccessor: %v", err)
	}
	if !got.Equal(self) {
		t.Errorf("FindSuccessor on a lone ring = %v, want self", got)
	}
}

func TestClosestPrecedingNodeSkipsEmptyFingers(t *testing.T) {
	self := mustNode(t, "127.0.0.1:4000")
	n, _ := newTestNode(t, self, 4)
	// No CreateRing: every finger except index 10 stays empty.

	far := mustNode(t, "127.0.0.1:4050")
	n.RoutingTable().UpdateFinger(10, far)

	key := self.ID.Add(1 << 20)
	got := n.closestPrecedingNode(key)
	if got.IsZero() {
		t.Fatalf("closestPrecedingNode returned zero node")
	}
	// Property 2 of spec §8: result is self, or a node whose id lies in
	// the open arc (self.id, key).
	if !got.Equal(self) && !ring.Between(got.ID, self.ID, key, false) {
		t.Errorf("closestPrecedingNode = %v, not in (self, key)", got)
	}
}

func TestHandleNotifyAdoptsCloserPredecessor(t *testing.T) {
	self := mustNode(t, "127.0.0.1:4000")
	n, _ := newTestNode(t, self, 4)
	n.CreateRing()

	p1 := ring.Node{ID: self.ID - 100, IP: net.ParseIP("127.0.0.1").To4(), Port: 5001}
	n.handleNotify(wire.Notify{Node: p1})
	if got := n.RoutingTable().Predecessor(); !got.Equal(p1) {
		t.Fatalf("predecessor = %v, want %v (first notify always adopted)", got, p1)
	}

	// A farther candidate must not displace the closer one.
	farther := ring.Node{ID: self.ID - 200, IP: net.ParseIP("127.0.0.1").To4(), Port: 5002}
	n.handleNotify(wire.Notify{Node: farther})
	if got := n.RoutingTable().Predecessor(); !got.Equal(p1) {
		t.Fatalf("predecessor = %v, want unchanged %v", got, p1)
	}

	// A closer candidate (between old predecessor and self) must win.
	closer := ring.Node{ID: self.ID - 10, IP: net.ParseIP("127.0.0.1").To4(), Port: 5003}
	n.handleNotify(wire.Notify{Node: closer})
	if got := n.RoutingTable().Predecessor(); !got.Equal(closer) {
		t.Fatalf("predecessor = %v, want %v", got, closer)
	}
}

func TestDispatchNotifyUpdatesPredecessor(t *testing.T) {
	self := mustNode(t, "127.0.0.1:4000")
	n, sender := newTestNode(t, self, 4)
	n.CreateRing()

	sourceAddr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4001}
	notifier := mustNode(t, "127.0.0.1:4001")
	packet := wire.EncodePacket(0, wire.Notify{Node: notifier})
	n.Dispatch(sourceAddr, packet)

	if got := n.RoutingTable().Predecessor(); !got.Equal(notifier) {
		t.Fatalf("predecessor = %v, want %v", got, notifier)
	}
	if sender.count() != 0 {
		t.Fatalf("NOTIFY must not trigger any reply, got %d sends", sender.count())
	}
}

func TestDispatchGetPredecessorRequestReplies(t *testing.T) {
	self := mustNode(t, "127.0.0.1:4000")
	n, sender := newTestNode(t, self, 4)
	n.CreateRing()
	pred := mustNode(t, "127.0.0.1:4002")
	n.RoutingTable().SetPredecessor(pred)

	from := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4003}
	req := wire.EncodePacket(77, wire.GetPredecessorRequest{})
	n.Dispatch(from, req)

	if sender.count() != 1 {
		t.Fatalf("expected exactly one reply, got %d", sender.count())
	}
	corrID, msg, err := wire.DecodePacket(sender.last().data)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if corrID != 77 {
		t.Errorf("reply correlation id = %d, want 77 (echoed from request)", corrID)
	}
	resp, ok := msg.(wire.GetPredecessorResponse)
	if !ok {
		t.Fatalf("reply tag = %v, want GetPredecessorResponse", msg.Tag())
	}
	if !resp.Node.Equal(pred) {
		t.Errorf("reply node = %v, want %v", resp.Node, pred)
	}
}

func TestDispatchResponseWithNoPendingCallIsDropped(t *testing.T) {
	self := mustNode(t, "127.0.0.1:4000")
	n, sender := newTestNode(t, self, 4)
	n.CreateRing()

	from := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4003}
	resp := wire.EncodePacket(999, wire.GetPredecessorResponse{})
	n.Dispatch(from, resp) // must not panic

	if sender.count() != 0 {
		t.Fatalf("an unsolicited response must never trigger a reply, got %d sends", sender.count())
	}
}
