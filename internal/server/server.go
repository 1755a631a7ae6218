package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"chordnode/internal/logger"
	"chordnode/internal/node"
	"chordnode/internal/ring"
	"chordnode/internal/routingtable"
	"chordnode/internal/transport"
)

const maxDatagramSize = 2048

// Server owns the UDP socket and drives the single event-loop goroutine
// spec §5 requires: one goroutine dispatches inbound datagrams and
// maintenance ticks, so RoutingTable and Node never need anything finer
// than the coarse locks they already hold. Grounded in a
// Server (internal/server/server.go), whose lifecycle shape (New/
// Run/Close) survives; its gRPC transport does not.
type Server struct {
	conn *net.UDPConn
	lgr  logger.Logger

	node    *node.Node
	tr      *transport.Transport
	periods node.MaintenancePeriods

	transportTimeout time.Duration

	readCh chan datagram
	wg     sync.WaitGroup
}

type datagram struct {
	from *net.UDPAddr
	data []byte
}

// New binds conn and wires a Node+Transport pair around it. self is this
// node's descriptor, succListSize is spec §3's r, bootstrapPeers seeds
// the re-join list spec §4.6 falls back to when the successor list is
// exhausted.
func New(conn *net.UDPConn, self ring.Node, succListSize int, bootstrapPeers []ring.Node, periods node.MaintenancePeriods, opts ...Option) (*Server, error) {
	s := &Server{
		conn:             conn,
		lgr:              &logger.NopLogger{},
		periods:          periods,
		transportTimeout: time.Second,
		readCh:           make(chan datagram, 256),
	}
	for _, opt := range opts {
		opt(s)
	}
	rt := routingtable.New(self, succListSize)
	s.tr = transport.New(s, s.transportTimeout, transport.WithLogger(s.lgr))
	s.node = node.New(self, rt, s.tr, s, node.WithLogger(s.lgr), node.WithBootstrapPeers(bootstrapPeers...))
	return s, nil
}

// Node exposes the wired Node for CLI commands (Lookup, PrintState) that
// run outside the event-loop goroutine.
func (s *Server) Node() *node.Node { return s.node }

// SendTo implements transport.Sender by writing directly to the UDP
// socket. Safe to call concurrently: net.UDPConn.WriteToUDP is safe for
// concurrent use by multiple goroutines.
func (s *Server) SendTo(addr *net.UDPAddr, data []byte) error {
	_, err := s.conn.WriteToUDP(data, addr)
	return err
}

// readLoop feeds inbound datagrams to readCh; it is the only goroutine
// that calls ReadFromUDP, keeping socket reads single-threaded while
// writes (via SendTo) remain safe to call from any goroutine.
func (s *Server) readLoop(ctx context.Context) {
	defer s.wg.Done()
	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			s.lgr.Warn("server: read failed", logger.F("err", err.Error()))
			continue
		}
		cp := make([]byte, n)
		copy(cp, buf[:n])
		select {
		case s.readCh <- datagram{from: from, data: cp}:
		case <-ctx.Done():
			return
		}
	}
}

// Run drives the event loop until ctx is canceled: inbound datagrams go
// to Node.Dispatch, and four tickers drive stabilize, fix_fingers,
// check_predecessor (spec §4.6) and the transport's retry/timeout sweep
// (spec §4.4). All of these run on this single goroutine.
func (s *Server) Run(ctx context.Context) error {
	s.wg.Add(1)
	go s.readLoop(ctx)

	stabilizeT := time.NewTicker(s.periods.Stabilize)
	fixFingersT := time.NewTicker(s.periods.FixFingers)
	checkPredT := time.NewTicker(s.periods.CheckPredecessor)
	sweepT := time.NewTicker(s.transportTimeout / 2)
	defer stabilizeT.Stop()
	defer fixFingersT.Stop()
	defer checkPredT.Stop()
	defer sweepT.Stop()

	for {
		select {
		case <-ctx.Done():
			s.conn.Close() // unblocks the read loop's pending ReadFromUDP
			s.wg.Wait()
			return nil
		case dg := <-s.readCh:
			s.node.Dispatch(dg.from, dg.data)
		case <-stabilizeT.C:
			s.node.Stabilize()
		case <-fixFingersT.C:
			s.node.FixFingers()
		case <-checkPredT.C:
			s.node.CheckPredecessor()
		case now := <-sweepT.C:
			s.tr.Sweep(now)
		}
	}
}

// Close releases the underlying socket. Run's caller should cancel its
// context first so the read loop unwinds cleanly.
func (s *Server) Close() error {
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("server: close: %w", err)
	}
	return nil
}
