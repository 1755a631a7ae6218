// Package routingtable implements a node's C3 state: self, predecessor,
// successor list, and finger table, grounded in the
// internal/routingtable.RoutingTable (same accessor/mutator shape,
// generalized from a de Bruijn routing table to a Chord finger table).
package routingtable

import (
	"sync"

	"chordnode/internal/logger"
	"chordnode/internal/ring"
)

// RoutingTable owns a node's C3 state. Per spec §5, only the event-loop
// goroutine is meant to call the mutators below; the RWMutex exists so
// read-only snapshots (the PrintState command, the standalone probe
// client) taken from other goroutines never race with it, not to permit
// concurrent writers.
type RoutingTable struct {
	logger logger.Logger

	mu            sync.RWMutex
	self          ring.Node
	predecessor   ring.Node // zero value means "none known"
	successorList []ring.Node
	succListSize  int
	fingerTable   [ring.Bits]ring.Node
	nextFinger    int
}

// New builds a routing table for self, with a successor list capped at
// succListSize entries (the CLI's -r flag, 1..=32).
func New(self ring.Node, succListSize int, opts ...Option) *RoutingTable {
	rt := &RoutingTable{
		logger:       logger.NopLogger{},
		self:         self,
		succListSize: succListSize,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// InitSingleNode initializes a lone-node ring (spec §4.9 create()):
// successor_list = [self], predecessor empty, every finger = self.
func (rt *RoutingTable) InitSingleNode() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.predecessor = ring.Node{}
	rt.successorList = []ring.Node{rt.self}
	for i := range rt.fingerTable {
		rt.fingerTable[i] = rt.self
	}
	rt.nextFinger = 0
}

// Self returns the node's own immutable descriptor.
func (rt *RoutingTable) Self() ring.Node { return rt.self }

// SuccListSize returns the configured successor list capacity r.
func (rt *RoutingTable) SuccListSize() int { return rt.succListSize }

// Successor returns the immediate successor, successor_list[0].
func (rt *RoutingTable) Successor() ring.Node {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if len(rt.successorList) == 0 {
		return rt.self
	}
	return rt.successorList[0]
}

// SnapshotSuccessors returns a copy of the current successor list.
func (rt *RoutingTable) SnapshotSuccessors() []ring.Node {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]ring.Node, len(rt.successorList))
	copy(out, rt.successorList)
	return out
}

// SetSuccessorList replaces the successor list wholesale (the
// snapshot-swap discipline of spec §5), truncated to succListSize and
// never left empty — an empty refresh falls back to [self].
func (rt *RoutingTable) SetSuccessorList(list []ring.Node) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if len(list) > rt.succListSize {
		list = list[:rt.succListSize]
	}
	if len(list) == 0 {
		list = []ring.Node{rt.self}
	}
	cp := make([]ring.Node, len(list))
	copy(cp, list)
	rt.successorList = cp
}

// SetSuccessor replaces only successor_list[0], used by stabilize when it
// adopts a closer predecessor as the new successor ahead of the next
// fix_successor_list refresh.
func (rt *RoutingTable) SetSuccessor(n ring.Node) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if len(rt.successorList) == 0 {
		rt.successorList = []ring.Node{n}
		return
	}
	rt.successorList[0] = n
}

// PromoteNextSuccessor drops successor_list[0] and promotes
// successor_list[1] to head, per spec §4.6's successor failover. It
// reports whether a surviving candidate was found; when the list is
// exhausted it falls back to a lone-node list (head = self) and the
// caller is expected to re-join via the bootstrap list.
func (rt *RoutingTable) PromoteNextSuccessor() (ring.Node, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if len(rt.successorList) > 1 {
		rt.successorList = rt.successorList[1:]
		return rt.successorList[0], true
	}
	rt.successorList = []ring.Node{rt.self}
	return rt.self, false
}

// Predecessor returns the current predecessor, or the zero Node if none
// is known.
func (rt *RoutingTable) Predecessor() ring.Node {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.predecessor
}

// SetPredecessor replaces the stored predecessor.
func (rt *RoutingTable) SetPredecessor(n ring.Node) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.predecessor = n
}

// ClearPredecessor marks the predecessor as unknown (check_predecessor
// timeout, spec §4.6).
func (rt *RoutingTable) ClearPredecessor() {
	rt.SetPredecessor(ring.Node{})
}

// Finger returns finger_table[i].
func (rt *RoutingTable) Finger(i int) ring.Node {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.fingerTable[i]
}

// UpdateFinger sets finger_table[i]. A failed fix_fingers lookup (spec
// §4.6) simply never calls this, leaving the prior value intact.
func (rt *RoutingTable) UpdateFinger(i int, n ring.Node) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.fingerTable[i] = n
}

// AdvanceFingerCursor returns the next round-robin finger index to
// refresh and advances next_finger (spec §4.6 fix_fingers).
func (rt *RoutingTable) AdvanceFingerCursor() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	i := rt.nextFinger
	rt.nextFinger = (rt.nextFinger + 1) % ring.Bits
	return i
}

// SnapshotFingers returns a copy of the finger table, for PrintState and
// the S6 convergence check.
func (rt *RoutingTable) SnapshotFingers() [ring.Bits]ring.Node {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.fingerTable
}

// DebugLog writes a structured snapshot of the table, grounded in the
// equivalent RoutingTable.DebugLog.
func (rt *RoutingTable) DebugLog() {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	rt.logger.Debug("routing table snapshot",
		logger.F("self", rt.self.String()),
		logger.F("predecessor", rt.predecessor.String()),
		logger.F("successor_count", len(rt.successorList)),
	)
}
