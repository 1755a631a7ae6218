package node

import (
	"context"
	"fmt"

	"chordnode/internal/chorderr"
	"chordnode/internal/ring"
	"chordnode/internal/telemetry/lookuptrace"
	"chordnode/internal/transport"
	"chordnode/internal/wire"
)

// closestPrecedingNode scans the finger table from the farthest entry
// down, per spec §4.5: the first finger whose id lies in the open arc
// (self.id, key) is the closest known node that precedes key. Empty
// fingers are skipped; no match falls back to self.
func (n *Node) closestPrecedingNode(key ring.ID) ring.Node {
	for i := ring.Bits - 1; i >= 0; i-- {
		f := n.rt.Finger(i)
		if f.IsZero() {
			continue
		}
		if ring.Between(f.ID, n.self.ID, key, false) {
			return f
		}
	}
	return n.self
}

// resolveHop decides the next step of find_successor(key): either the
// answer is known locally (successor covers the arc, or no finger can
// make progress past self), or the lookup must be forwarded one hop to
// forward.
func (n *Node) resolveHop(key ring.ID) (immediate ring.Node, forward ring.Node, isImmediate bool) {
	succ := n.rt.Successor()
	if ring.Between(key, n.self.ID, succ.ID, true) {
		return succ, ring.Node{}, true
	}
	cp := n.closestPrecedingNode(key)
	if cp.Equal(n.self) {
		return n.self, ring.Node{}, true
	}
	return ring.Node{}, cp, false
}

// FindSuccessor performs a blocking find_successor(key), per spec §4.5.
// It is for callers outside the event loop — such as the interactive
// Lookup command — that can afford to block their own goroutine on the
// single RPC round trip this node makes. It does not itself recurse
// across multiple peers: the next hop's own find_successor, triggered by
// the START_FIND_SUCCESSOR_REQUEST this sends, does that.
func (n *Node) FindSuccessor(ctx context.Context, key ring.ID) (ring.Node, error) {
	ctx, span := lookuptrace.StartLookup(ctx, "find_successor")
	defer span.End()

	immediate, forward, done := n.resolveHop(key)
	if done {
		return immediate, nil
	}
	resp, err := n.tr.Send(ctx, forward.UDPAddr(), wire.StartFindSuccessorRequest{Key: key}, transport.RetryOnce)
	if err != nil {
		return ring.Node{}, fmt.Errorf("%w: %v", chorderr.LookupFailed, err)
	}
	r, ok := resp.(wire.StartFindSuccessorResponse)
	if !ok {
		return ring.Node{}, chorderr.LookupFailed
	}
	return r.Node, nil
}

// FindSuccessorAsync is the non-blocking counterpart used from inside
// the event-loop goroutine itself (fix_fingers, and the request handler
// forwarding a peer's lookup): it never waits on the round trip, it
// registers onComplete as the continuation that fires when the reply
// eventually arrives (spec §5).
func (n *Node) FindSuccessorAsync(key ring.ID, onComplete func(ring.Node, error)) {
	immediate, forward, done := n.resolveHop(key)
	if done {
		onComplete(immediate, nil)
		return
	}
	_, err := n.tr.SendAsync(forward.UDPAddr(), wire.StartFindSuccessorRequest{Key: key}, transport.RetryOnce,
		func(msg wire.Message, err error) {
			if err != nil {
				onComplete(ring.Node{}, fmt.Errorf("%w: %v", chorderr.LookupFailed, err))
				return
			}
			r, ok := msg.(wire.StartFindSuccessorResponse)
			if !ok {
				onComplete(ring.Node{}, chorderr.LookupFailed)
				return
			}
			onComplete(r.Node, nil)
		})
	if err != nil {
		onComplete(ring.Node{}, fmt.Errorf("%w: %v", chorderr.LookupFailed, err))
	}
}
