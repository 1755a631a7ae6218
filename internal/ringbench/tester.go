// Package ringbench drives real loopback-UDP rings to convergence
// in-process, generalizing internal/server/server_test.go's
// TestTwoNodesJoinAndStabilizeConverge from a fixed two-node scenario
// to a configurable sweep of ring sizes, and from a single pass/fail
// poll to a round-counted measurement of how many stabilize periods
// each ring size needed to reach successor(predecessor(n)) = n for
// every node.
package ringbench

import (
	"context"
	"fmt"
	"net"
	"time"

	"chordnode/internal/logger"
	"chordnode/internal/node"
	"chordnode/internal/ring"
	"chordnode/internal/ringbench/writer"
	"chordnode/internal/server"
)

// Config controls one convergence sweep across ring sizes.
type Config struct {
	Sizes        []int // ring sizes to exercise, e.g. {2, 4, 8, 16}
	Trials       int   // independent trials per size
	SuccListSize int
	Periods      node.MaintenancePeriods
	MaxRounds    int // bail out and record non-convergence after this many stabilize periods
	JoinTimeout  time.Duration
}

// Harness builds, joins and drives one ring per trial, entirely within
// this process — no external node binaries, no --peers list.
type Harness struct {
	cfg Config
	lgr logger.Logger
	w   writer.Writer
}

func New(cfg Config, lgr logger.Logger, w writer.Writer) *Harness {
	return &Harness{cfg: cfg, lgr: lgr, w: w}
}

// Run sweeps every configured ring size, writing one CSV row per trial.
func (h *Harness) Run(ctx context.Context) error {
	for _, size := range h.cfg.Sizes {
		for trial := 0; trial < h.cfg.Trials; trial++ {
			rounds, converged, elapsed, err := h.runTrial(ctx, size)
			if err != nil {
				return fmt.Errorf("ringbench: ring_size=%d trial=%d: %w", size, trial, err)
			}
			h.lgr.Info("ringbench: trial complete",
				logger.F("ring_size", size), logger.F("trial", trial),
				logger.F("rounds", rounds), logger.F("converged", converged))
			if err := h.w.WriteRow(size, trial, rounds, converged, elapsed); err != nil {
				return fmt.Errorf("ringbench: write row: %w", err)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
	return h.w.Flush()
}

// runTrial spins up size real loopback-UDP servers, has node 0 create
// the ring and every other node join through it, then polls once per
// stabilize period until every node's successor(predecessor) is itself
// or MaxRounds elapses.
func (h *Harness) runTrial(ctx context.Context, size int) (rounds int, converged bool, elapsed time.Duration, err error) {
	conns := make([]*net.UDPConn, size)
	selves := make([]ring.Node, size)
	for i := range conns {
		conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
		if err != nil {
			closeAll(conns[:i])
			return 0, false, 0, fmt.Errorf("listen node %d: %w", i, err)
		}
		conns[i] = conn
		addr := conn.LocalAddr().(*net.UDPAddr)
		selves[i] = ring.NewNode(addr.IP, uint16(addr.Port))
	}
	defer closeAll(conns)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	srvs := make([]*server.Server, size)
	srvs[0], err = server.New(conns[0], selves[0], h.cfg.SuccListSize, nil, h.cfg.Periods, server.WithLogger(h.lgr))
	if err != nil {
		return 0, false, 0, fmt.Errorf("new node 0: %w", err)
	}
	srvs[0].Node().CreateRing()
	go srvs[0].Run(runCtx)

	for i := 1; i < size; i++ {
		s, err := server.New(conns[i], selves[i], h.cfg.SuccListSize, []ring.Node{selves[0]}, h.cfg.Periods, server.WithLogger(h.lgr))
		if err != nil {
			return 0, false, 0, fmt.Errorf("new node %d: %w", i, err)
		}
		srvs[i] = s
		go s.Run(runCtx)

		joinCtx, joinCancel := context.WithTimeout(ctx, h.cfg.JoinTimeout)
		err = s.Node().Join(joinCtx, selves[0])
		joinCancel()
		if err != nil {
			return 0, false, 0, fmt.Errorf("node %d join: %w", i, err)
		}
	}

	start := time.Now()
	ticker := time.NewTicker(h.cfg.Periods.Stabilize)
	defer ticker.Stop()
	for round := 1; round <= h.cfg.MaxRounds; round++ {
		select {
		case <-ctx.Done():
			return round, false, time.Since(start), ctx.Err()
		case <-ticker.C:
		}
		if ringConverged(srvs) {
			return round, true, time.Since(start), nil
		}
	}
	return h.cfg.MaxRounds, false, time.Since(start), nil
}

// ringConverged reports whether successor(predecessor(n)) = n holds
// for every server in srvs, keyed by ring id since ring.Node embeds a
// net.IP slice and isn't itself comparable.
func ringConverged(srvs []*server.Server) bool {
	byID := make(map[ring.ID]*server.Server, len(srvs))
	for _, s := range srvs {
		byID[s.Node().Self().ID] = s
	}
	for _, s := range srvs {
		pred := s.Node().RoutingTable().Predecessor()
		predSrv, ok := byID[pred.ID]
		if !ok {
			return false
		}
		if !predSrv.Node().RoutingTable().Successor().Equal(s.Node().Self()) {
			return false
		}
	}
	return true
}

func closeAll(conns []*net.UDPConn) {
	for _, c := range conns {
		if c != nil {
			c.Close()
		}
	}
}
