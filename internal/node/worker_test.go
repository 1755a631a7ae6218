package node

import (
	"testing"
	"time"

	"chordnode/internal/ring"
	"chordnode/internal/routingtable"
	"chordnode/internal/transport"
	"chordnode/internal/wire"
)

func waitForSends(t *testing.T, sender *recordingSender, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for sender.count() < want && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if sender.count() < want {
		t.Fatalf("expected at least %d datagrams sent, got %d", want, sender.count())
	}
}

func TestStabilizeAdoptsCloserPredecessorAndNotifies(t *testing.T) {
	self := mustNode(t, "127.0.0.1:4000")
	succ := mustNode(t, "127.0.0.1:4001")
	n, sender := newTestNode(t, self, 4)
	n.RoutingTable().SetSuccessorList([]ring.Node{succ})

	n.Stabilize()
	waitForSends(t, sender, 1)

	// Reply to the GET_PREDECESSOR_REQUEST with a node strictly between
	// self and succ: stabilize must adopt it as the new successor.
	corrID, req, err := wire.DecodePacket(sender.last().data)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if req.Tag() != wire.TagGetPredecessorRequest {
		t.Fatalf("first send tag = %v, want GetPredecessorRequest", req.Tag())
	}
	closer := mustNode(t, "127.0.0.1:4005")
	n.tr.Deliver(corrID, wire.GetPredecessorResponse{Node: closer})

	// That should trigger a NOTIFY to the adopted successor, followed by
	// a GET_SUCCESSOR_LIST_REQUEST from fix_successor_list.
	waitForSends(t, sender, 3)
	if got := n.RoutingTable().Successor(); !got.Equal(closer) {
		t.Fatalf("Successor() = %v, want adopted %v", got, closer)
	}
}

func TestStabilizeLoneRingSkipsRPCs(t *testing.T) {
	self := mustNode(t, "127.0.0.1:4000")
	n, sender := newTestNode(t, self, 4)
	n.CreateRing()

	n.Stabilize()
	time.Sleep(20 * time.Millisecond)
	if sender.count() != 0 {
		t.Fatalf("lone-ring stabilize must not send any RPC, got %d", sender.count())
	}
}

func TestFixSuccessorListBuildsPrependedList(t *testing.T) {
	self := mustNode(t, "127.0.0.1:4000")
	succ := mustNode(t, "127.0.0.1:4001")
	n, sender := newTestNode(t, self, 3)
	n.RoutingTable().SetSuccessorList([]ring.Node{succ})

	n.FixSuccessorList()
	waitForSends(t, sender, 1)
	corrID, _, err := wire.DecodePacket(sender.last().data)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}

	remote1 := mustNode(t, "127.0.0.1:4002")
	remote2 := mustNode(t, "127.0.0.1:4003")
	n.tr.Deliver(corrID, wire.GetSuccessorListResponse{Successors: []ring.Node{remote1, remote2}})

	got := n.RoutingTable().SnapshotSuccessors()
	want := []ring.Node{succ, remote1, remote2}
	if len(got) != len(want) {
		t.Fatalf("successor list = %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("successor list[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFixSuccessorListTimeoutPromotesNext(t *testing.T) {
	self := mustNode(t, "127.0.0.1:4000")
	succ := mustNode(t, "127.0.0.1:4001")
	backup := mustNode(t, "127.0.0.1:4002")
	sender := &recordingSender{}
	rt := routingtable.New(self, 4)
	rt.SetSuccessorList([]ring.Node{succ, backup})
	tr := transport.New(sender, 10*time.Millisecond)
	n := New(self, rt, tr, sender)

	n.FixSuccessorList()
	waitForSends(t, sender, 1)
	// get_successor_list runs under RetryOnce: the first sweep past the
	// deadline resends, the second one fails the call.
	tr.Sweep(time.Now().Add(time.Second))
	tr.Sweep(time.Now().Add(2 * time.Second))

	deadline := time.Now().Add(time.Second)
	for n.RoutingTable().Successor().Equal(succ) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := n.RoutingTable().Successor(); !got.Equal(backup) {
		t.Fatalf("Successor() = %v, want failover to %v", got, backup)
	}
}

func TestCheckPredecessorClearsOnTimeout(t *testing.T) {
	self := mustNode(t, "127.0.0.1:4000")
	pred := mustNode(t, "127.0.0.1:4001")
	sender := &recordingSender{}
	rt := routingtable.New(self, 4)
	rt.SetPredecessor(pred)
	tr := transport.New(sender, 10*time.Millisecond)
	n := New(self, rt, tr, sender)

	n.CheckPredecessor()
	waitForSends(t, sender, 1)
	tr.Sweep(time.Now().Add(time.Second))

	deadline := time.Now().Add(time.Second)
	for !n.RoutingTable().Predecessor().IsZero() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !n.RoutingTable().Predecessor().IsZero() {
		t.Fatalf("predecessor should be cleared after timeout")
	}
}

func TestFixFingersUpdatesFingerOnImmediateAnswer(t *testing.T) {
	self := mustNode(t, "127.0.0.1:4000")
	n, _ := newTestNode(t, self, 4)
	n.CreateRing()

	n.FixFingers()
	if got := n.RoutingTable().Finger(0); !got.Equal(self) {
		t.Fatalf("Finger(0) on a lone ring = %v, want self", got)
	}
}
