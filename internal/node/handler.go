package node

import (
	"context"
	"net"

	"chordnode/internal/logger"
	"chordnode/internal/ring"
	"chordnode/internal/telemetry/lookuptrace"
	"chordnode/internal/trace"
	"chordnode/internal/wire"
)

// handleRequest dispatches a decoded request message by tag, per spec
// §4.7. None of these block on an outbound RPC: find_successor
// forwarding defers its reply through a continuation instead (see
// handleStartFindSuccessor below and lookup.go's FindSuccessorAsync).
func (n *Node) handleRequest(from *net.UDPAddr, corrID uint64, msg wire.Message) {
	switch m := msg.(type) {
	case wire.Notify:
		n.handleNotify(m)
	case wire.GetPredecessorRequest:
		n.reply(from, corrID, wire.GetPredecessorResponse{Node: n.rt.Predecessor()})
	case wire.GetSuccessorListRequest:
		n.reply(from, corrID, wire.GetSuccessorListResponse{Successors: n.rt.SnapshotSuccessors()})
	case wire.StartFindSuccessorRequest:
		n.handleStartFindSuccessor(from, corrID, m.Key)
	case wire.CheckPredecessorRequest:
		n.reply(from, corrID, wire.CheckPredecessorResponse{})
	default:
		n.logger.Debug("dropping request with no handler",
			logger.F("from", from.String()), logger.F("tag", msg.Tag().String()))
	}
}

// handleNotify is the receiver-side notify logic of spec §4.6: adopt n'
// as predecessor when none is known yet, or when n' is strictly closer
// than the current predecessor.
func (n *Node) handleNotify(m wire.Notify) {
	pred := n.rt.Predecessor()
	if pred.IsZero() || ring.Between(m.Node.ID, pred.ID, n.self.ID, false) {
		n.rt.SetPredecessor(m.Node)
	}
}

// handleStartFindSuccessor answers a peer's lookup. When the answer
// isn't known locally this issues a further outbound request and
// defers the reply to the continuation fired once that resolves —
// exactly the pattern spec §5 requires to avoid blocking the event loop
// on a recursive lookup.
func (n *Node) handleStartFindSuccessor(from *net.UDPAddr, corrID uint64, key ring.ID) {
	ctx, traceID := trace.AttachTraceID(context.Background(), n.self.ID)
	_, span := lookuptrace.StartLookup(ctx, "start_find_successor")
	n.FindSuccessorAsync(key, func(result ring.Node, err error) {
		defer span.End()
		if err != nil {
			n.logger.Debug("find_successor forwarding failed",
				logger.F("trace_id", traceID), logger.F("from", from.String()), logger.F("err", err.Error()))
			return
		}
		n.logger.Debug("find_successor forwarded",
			logger.F("trace_id", traceID), logger.F("key", key.String()), logger.F("result", result.String()))
		n.reply(from, corrID, wire.StartFindSuccessorResponse{Node: result})
	})
}
