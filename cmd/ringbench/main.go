// Command ringbench measures convergence: for each configured ring
// size it spins up that many real loopback-UDP nodes in this one
// process, joins them into a single ring, and counts how many
// stabilize rounds pass before successor(predecessor(n)) = n holds for
// every node — an empirical check of the maintenance loop's
// convergence property, written to CSV. Generalized from an earlier
// gRPC clientpool driving load against an already-running fleet into an
// in-process harness, since a Chord ring's own stabilize/notify
// convergence is what this tool measures, not a remote fleet's lookup
// latency.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"chordnode/internal/config"
	"chordnode/internal/logger"
	zapfactory "chordnode/internal/logger/zap"
	"chordnode/internal/node"
	"chordnode/internal/ringbench"
	"chordnode/internal/ringbench/writer"
)

func main() {
	os.Exit(run())
}

func run() int {
	sizesFlag := flag.String("sizes", "4,8,16", "comma-separated ring sizes to exercise")
	trials := flag.Int("trials", 3, "independent trials per ring size")
	succListSize := flag.Int("r", 4, "successor list length, 1..=32")
	stabilizeMs := flag.Int("ts", 10, "stabilize period in milliseconds")
	fixFingersMs := flag.Int("tff", 10, "fix_fingers period in milliseconds")
	checkPredMs := flag.Int("tcp", 10, "check_predecessor period in milliseconds")
	maxRounds := flag.Int("max-rounds", 500, "stabilize rounds to wait before declaring non-convergence")
	joinTimeout := flag.Duration("join-timeout", 2*time.Second, "per-node join timeout")
	csvPath := flag.String("csv", "", "path to write rounds-to-convergence CSV rows (disabled if empty)")
	logLevel := flag.String("log-level", "info", "debug|info|warn|error")
	flag.Parse()

	sizes, err := splitSizes(*sizesFlag)
	if err != nil {
		log.Printf("ringbench: %v", err)
		return 2
	}
	if len(sizes) == 0 {
		log.Println("ringbench: --sizes must name at least one ring size")
		return 2
	}

	lgr, err := zapfactory.New(config.LoggerConfig{Active: true, Level: *logLevel, Encoding: "console", Mode: "stdout"})
	if err != nil {
		log.Printf("ringbench: logger init: %v", err)
		return 2
	}
	l := zapfactory.NewZapAdapter(lgr)

	var w writer.Writer = writer.NopWriter{}
	if *csvPath != "" {
		cw, err := writer.NewCSVWriter(*csvPath)
		if err != nil {
			l.Error("ringbench: csv init failed", logger.F("err", err.Error()))
			return 1
		}
		defer cw.Close()
		w = cw
	}

	cfg := ringbench.Config{
		Sizes:        sizes,
		Trials:       *trials,
		SuccListSize: *succListSize,
		Periods: node.MaintenancePeriods{
			Stabilize:        time.Duration(*stabilizeMs) * time.Millisecond,
			FixFingers:       time.Duration(*fixFingersMs) * time.Millisecond,
			CheckPredecessor: time.Duration(*checkPredMs) * time.Millisecond,
		},
		MaxRounds:   *maxRounds,
		JoinTimeout: *joinTimeout,
	}

	h := ringbench.New(cfg, l, w)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := h.Run(ctx); err != nil && ctx.Err() == nil {
		l.Error("ringbench: run failed", logger.F("err", err.Error()))
		return 1
	}
	return 0
}

func splitSizes(s string) ([]int, error) {
	var out []int
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		if n < 1 {
			return nil, strconv.ErrRange
		}
		out = append(out, n)
	}
	return out, nil
}
