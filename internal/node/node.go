// Package node wires C3 (routing table), C4 (transport), C5 (lookup),
// C6 (maintenance) and C7 (message handlers) together into the single
// object the event loop (C8, internal/server) drives. The shape of
// dependency — a routing table handed in at construction, driven by an
// event loop external to the package — generalizes an earlier node type
// built around a de Bruijn routing core instead of a Chord one.
package node

import (
	"net"

	"chordnode/internal/logger"
	"chordnode/internal/ring"
	"chordnode/internal/routingtable"
	"chordnode/internal/transport"
	"chordnode/internal/wire"
)

// Node is the single-writer owner of one ring participant's state and
// the only thing the event loop calls into. Every method that mutates
// routing state or issues RPCs is meant to run on the event-loop
// goroutine (spec §5); nothing here takes its own lock.
type Node struct {
	logger logger.Logger

	self   ring.Node
	rt     *routingtable.RoutingTable
	tr     *transport.Transport
	sender transport.Sender

	bootstrapPeers []ring.Node
}

// New builds a Node around an already-constructed routing table and
// transport; sender is used for the one-way replies (NOTIFY has no
// response, and request handlers answer without going through the
// pending-calls table).
func New(self ring.Node, rt *routingtable.RoutingTable, tr *transport.Transport, sender transport.Sender, opts ...Option) *Node {
	n := &Node{
		logger: logger.NopLogger{},
		self:   self,
		rt:     rt,
		tr:     tr,
		sender: sender,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Self returns this node's own descriptor.
func (n *Node) Self() ring.Node { return n.self }

// RoutingTable exposes the underlying C3 state for PrintState and tests.
func (n *Node) RoutingTable() *routingtable.RoutingTable { return n.rt }

// Dispatch decodes one inbound datagram and routes it: response tags go
// to the transport's pending-call table, request tags go to this node's
// handlers. Decoding once here (rather than once in the transport and
// again in the handler) is what keeps C8's per-datagram work bounded to
// a single decode, per spec §4.8's "no datagram holds the loop" rule.
func (n *Node) Dispatch(from *net.UDPAddr, data []byte) {
	corrID, msg, err := wire.DecodePacket(data)
	if err != nil {
		n.logger.Debug("dropping malformed datagram",
			logger.F("from", from.String()), logger.F("err", err.Error()))
		return
	}

	switch msg.Tag() {
	case wire.TagGetPredecessorResponse, wire.TagGetSuccessorListResponse,
		wire.TagStartFindSuccessorResponse, wire.TagCheckPredecessorResponse:
		if !n.tr.Deliver(corrID, msg) {
			n.logger.Debug("dropping response with no matching call",
				logger.F("from", from.String()), logger.F("tag", msg.Tag().String()))
		}
	default:
		n.handleRequest(from, corrID, msg)
	}
}

// reply answers a request directly through the socket, bypassing the
// pending-calls table — a reply is not itself awaiting a further reply.
func (n *Node) reply(to *net.UDPAddr, corrID uint64, msg wire.Message) {
	if err := n.sender.SendTo(to, wire.EncodePacket(corrID, msg)); err != nil {
		n.logger.Warn("reply send failed",
			logger.F("to", to.String()), logger.F("err", err.Error()))
	}
}
