package node

import (
	"time"

	"chordnode/internal/logger"
	"chordnode/internal/ring"
	"chordnode/internal/transport"
	"chordnode/internal/wire"
)

// Stabilize is spec §4.6's stabilize step: ask the successor for its
// predecessor, adopt it if it's a closer fit, notify the (possibly new)
// successor, then refresh the successor list. Grounded in the
// stabilizeSuccessor, adapted from blocking gRPC calls to the
// continuation style the single event-loop goroutine requires.
func (n *Node) Stabilize() {
	succ := n.rt.Successor()
	if succ.Equal(n.self) {
		// Lone ring: self's own predecessor is the predecessor of its
		// successor. If a NOTIFY has set one, adopt it as successor and
		// stabilize against it; otherwise there is nothing upstream yet.
		pred := n.rt.Predecessor()
		if pred.IsZero() || pred.Equal(n.self) {
			n.FixSuccessorList()
			return
		}
		n.rt.SetSuccessor(pred)
		succ = pred
	}

	n.tr.SendAsync(succ.UDPAddr(), wire.GetPredecessorRequest{}, transport.RetryOnce,
		func(msg wire.Message, err error) {
			if err != nil {
				n.logger.Warn("stabilize: get_predecessor failed",
					logger.FNode("succ", succ), logger.F("err", err.Error()))
				n.FixSuccessorList()
				return
			}
			resp := msg.(wire.GetPredecessorResponse)
			target := succ
			if !resp.Node.IsZero() && !resp.Node.Equal(n.self) &&
				ring.Between(resp.Node.ID, n.self.ID, succ.ID, false) {
				n.rt.SetSuccessor(resp.Node)
				target = resp.Node
			}
			n.notify(target)
			n.FixSuccessorList()
		})
}

// notify sends a one-way NOTIFY{self}; spec §4.2 defines no response to
// it, so it never enters the pending-calls table — it's a plain datagram
// write, not a tracked RPC.
func (n *Node) notify(target ring.Node) {
	if err := n.sender.SendTo(target.UDPAddr(), wire.EncodePacket(0, wire.Notify{Node: n.self})); err != nil {
		n.logger.Warn("notify send failed",
			logger.FNode("target", target), logger.F("err", err.Error()))
	}
}

// FixSuccessorList is spec §4.6's fix_successor_list: refresh the local
// list to [successor()] ++ successor's own list, truncated to r. On
// failure it runs the successor failover instead.
func (n *Node) FixSuccessorList() {
	succ := n.rt.Successor()
	if succ.Equal(n.self) {
		return
	}
	n.tr.SendAsync(succ.UDPAddr(), wire.GetSuccessorListRequest{}, transport.RetryOnce,
		func(msg wire.Message, err error) {
			if err != nil {
				n.logger.Warn("fix_successor_list: request failed, failing over",
					logger.FNode("succ", succ), logger.F("err", err.Error()))
				n.failoverSuccessor()
				return
			}
			resp := msg.(wire.GetSuccessorListResponse)
			newList := append([]ring.Node{succ}, resp.Successors...)
			if size := n.rt.SuccListSize(); len(newList) > size {
				newList = newList[:size]
			}
			n.rt.SetSuccessorList(newList)
		})
}

// failoverSuccessor drops the dead successor_list[0] and promotes the
// next candidate; when the list is exhausted it falls back to self and
// re-attempts a join through the original bootstrap peers (spec §4.6).
func (n *Node) failoverSuccessor() {
	_, ok := n.rt.PromoteNextSuccessor()
	if !ok {
		n.logger.Warn("successor list exhausted, re-joining via bootstrap peers")
		n.rejoinFromBootstrap()
	}
}

// rejoinFromBootstrap re-attempts spec §4.9's join() against the peer
// list recorded at construction, in order, stopping at the first one
// that answers.
func (n *Node) rejoinFromBootstrap() {
	n.tryRejoin(0)
}

func (n *Node) tryRejoin(idx int) {
	if idx >= len(n.bootstrapPeers) {
		return
	}
	peer := n.bootstrapPeers[idx]
	n.tr.SendAsync(peer.UDPAddr(), wire.StartFindSuccessorRequest{Key: n.self.ID}, transport.RetryOnce,
		func(msg wire.Message, err error) {
			if err != nil {
				n.logger.Warn("rejoin attempt failed", logger.FNode("peer", peer), logger.F("err", err.Error()))
				n.tryRejoin(idx + 1)
				return
			}
			resp := msg.(wire.StartFindSuccessorResponse)
			n.rt.SetSuccessorList([]ring.Node{resp.Node})
		})
}

// FixFingers is spec §4.6's fix_fingers: advance the round-robin cursor
// and refresh that one finger via a (possibly forwarded) lookup. A
// failed lookup leaves the prior entry untouched.
func (n *Node) FixFingers() {
	i := n.rt.AdvanceFingerCursor()
	target := ring.FingerStart(n.self.ID, i)
	n.FindSuccessorAsync(target, func(result ring.Node, err error) {
		if err != nil {
			n.logger.Debug("fix_fingers: lookup failed", logger.F("index", i), logger.F("err", err.Error()))
			return
		}
		n.rt.UpdateFinger(i, result)
	})
}

// CheckPredecessor is spec §4.6's check_predecessor: ping predecessor,
// clear it on timeout. No retry — per §4.4, a single lost probe is
// already the intended signal.
func (n *Node) CheckPredecessor() {
	pred := n.rt.Predecessor()
	if pred.IsZero() {
		return
	}
	n.tr.SendAsync(pred.UDPAddr(), wire.CheckPredecessorRequest{}, transport.NoRetry,
		func(_ wire.Message, err error) {
			if err != nil {
				n.logger.Info("check_predecessor: predecessor unresponsive, clearing",
					logger.FNode("pred", pred), logger.F("err", err.Error()))
				n.rt.ClearPredecessor()
			}
		})
}

// MaintenancePeriods groups the configurable tick intervals of spec §6's
// --ts/--tff/--tcp flags; fix_successor_list has no independent period,
// it is fused into stabilize per spec §4.6.
type MaintenancePeriods struct {
	Stabilize        time.Duration
	FixFingers       time.Duration
	CheckPredecessor time.Duration
}
