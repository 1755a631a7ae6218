package routingtable

import (
	"testing"

	"chordnode/internal/ring"
)

func node(t *testing.T, addr string) ring.Node {
	t.Helper()
	n, err := ring.NodeFromAddr(addr)
	if err != nil {
		t.Fatalf("NodeFromAddr: %v", err)
	}
	return n
}

func TestInitSingleNode(t *testing.T) {
	self := node(t, "127.0.0.1:4000")
	rt := New(self, 4)
	rt.InitSingleNode()

	if got := rt.Successor(); !got.Equal(self) {
		t.Errorf("Successor() = %v, want self", got)
	}
	if !rt.Predecessor().IsZero() {
		t.Errorf("Predecessor() should be empty on a lone ring")
	}
	for i := 0; i < ring.Bits; i++ {
		if f := rt.Finger(i); !f.Equal(self) {
			t.Errorf("Finger(%d) = %v, want self", i, f)
		}
	}
}

func TestSetSuccessorListTruncatesAndNeverEmpty(t *testing.T) {
	self := node(t, "127.0.0.1:4000")
	rt := New(self, 2)
	rt.InitSingleNode()

	a := node(t, "127.0.0.1:4001")
	b := node(t, "127.0.0.1:4002")
	c := node(t, "127.0.0.1:4003")
	rt.SetSuccessorList([]ring.Node{a, b, c})

	got := rt.SnapshotSuccessors()
	if len(got) != 2 {
		t.Fatalf("successor list length = %d, want truncated to 2", len(got))
	}
	if !got[0].Equal(a) || !got[1].Equal(b) {
		t.Errorf("successor list = %v, want [a,b]", got)
	}

	rt.SetSuccessorList(nil)
	if got := rt.Successor(); !got.Equal(self) {
		t.Errorf("empty refresh must fall back to self, got %v", got)
	}
}

func TestPromoteNextSuccessor(t *testing.T) {
	self := node(t, "127.0.0.1:4000")
	rt := New(self, 3)
	a := node(t, "127.0.0.1:4001")
	b := node(t, "127.0.0.1:4002")
	rt.SetSuccessorList([]ring.Node{a, b})

	next, ok := rt.PromoteNextSuccessor()
	if !ok || !next.Equal(b) {
		t.Fatalf("PromoteNextSuccessor() = %v,%v want b,true", next, ok)
	}

	next, ok = rt.PromoteNextSuccessor()
	if ok {
		t.Fatalf("PromoteNextSuccessor() should report exhaustion, got ok=true")
	}
	if !next.Equal(self) {
		t.Fatalf("exhausted list must fall back to self, got %v", next)
	}
}

func TestAdvanceFingerCursorRoundRobin(t *testing.T) {
	self := node(t, "127.0.0.1:4000")
	rt := New(self, 4)
	seen := make(map[int]bool)
	for i := 0; i < ring.Bits; i++ {
		idx := rt.AdvanceFingerCursor()
		if seen[idx] {
			t.Fatalf("index %d visited twice before a full round", idx)
		}
		seen[idx] = true
	}
	if got := rt.AdvanceFingerCursor(); got != 0 {
		t.Errorf("cursor should wrap to 0 after a full round, got %d", got)
	}
}

func TestPredecessor(t *testing.T) {
	self := node(t, "127.0.0.1:4000")
	rt := New(self, 4)
	rt.InitSingleNode()

	p := node(t, "127.0.0.1:4009")
	rt.SetPredecessor(p)
	if got := rt.Predecessor(); !got.Equal(p) {
		t.Errorf("Predecessor() = %v, want %v", got, p)
	}
	rt.ClearPredecessor()
	if !rt.Predecessor().IsZero() {
		t.Errorf("ClearPredecessor must leave predecessor empty")
	}
}
