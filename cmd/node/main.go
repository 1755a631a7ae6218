// Command node runs a single Chord ring participant: it binds a UDP
// socket, joins or creates a ring, and drives the stabilize/fix_fingers/
// check_predecessor maintenance loop until signaled to stop. The wiring
// sequence (flag-parse -> LoadConfig -> ApplyEnvOverrides ->
// ValidateConfig -> wire -> serve -> graceful shutdown) follows the
// same shape as a gRPC service's main, minus the server/clientpool/
// storage wiring a UDP transport doesn't need.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"chordnode/internal/bootstrap"
	"chordnode/internal/config"
	"chordnode/internal/logger"
	zapfactory "chordnode/internal/logger/zap"
	"chordnode/internal/node"
	"chordnode/internal/ring"
	"chordnode/internal/server"
	"chordnode/internal/telemetry"

	"github.com/peterh/liner"
)

const exitConfigError = 2

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to an optional YAML configuration overlay")
	addr := flag.String("addr", "0.0.0.0", "address to bind this node's socket to")
	port := flag.Int("port", 4000, "port to bind this node's socket to")
	joinAddr := flag.String("ja", "", "address of an existing ring member to join through")
	joinPort := flag.Int("jp", 0, "port of the existing ring member named by --ja")
	tsMs := flag.Int("ts", 0, "stabilize period in milliseconds (overrides config)")
	tffMs := flag.Int("tff", 0, "fix_fingers period in milliseconds (overrides config)")
	tcpMs := flag.Int("tcp", 0, "check_predecessor period in milliseconds (overrides config)")
	succListSize := flag.Int("r", 0, "successor list length, 1..=32 (overrides config)")
	registerMode := flag.String("register", "", "discovery/registration backend: static|route53|coredns (overrides config, default static)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Printf("node: %v", err)
		return exitConfigError
	}

	cfg.Node.Addr = *addr
	cfg.Node.Port = *port
	if *joinAddr != "" {
		cfg.Bootstrap.Addr = *joinAddr
		cfg.Bootstrap.Port = *joinPort
	}
	if *tsMs > 0 {
		cfg.DHT.Maintenance.StabilizeMs = *tsMs
	}
	if *tffMs > 0 {
		cfg.DHT.Maintenance.FixFingersMs = *tffMs
	}
	if *tcpMs > 0 {
		cfg.DHT.Maintenance.CheckPredecessorMs = *tcpMs
	}
	if *succListSize > 0 {
		cfg.DHT.SuccListSize = *succListSize
	}
	if *registerMode != "" {
		cfg.Bootstrap.Mode = *registerMode
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.ValidateConfig(); err != nil {
		log.Printf("node: %v", err)
		return exitConfigError
	}

	lgr, err := newLogger(cfg.Logger)
	if err != nil {
		log.Printf("node: logger init: %v", err)
		return exitConfigError
	}
	cfg.LogConfig(lgr)

	self, err := ring.NodeFromAddr(fmt.Sprintf("%s:%d", cfg.Node.Addr, cfg.Node.Port))
	if err != nil {
		lgr.Error("node: invalid bind address", logger.F("err", err.Error()))
		return exitConfigError
	}

	shutdownTracer := telemetry.InitTracer(cfg.Telemetry, "chordnode", self.ID)
	defer shutdownTracer(context.Background())

	conn, err := server.ListenUDP(cfg.Node.Addr, cfg.Node.Port)
	if err != nil {
		lgr.Error("node: bind failed", logger.F("err", err.Error()))
		return 1
	}

	disc, err := newBootstrapBackend(cfg.Bootstrap)
	if err != nil {
		lgr.Error("node: bootstrap backend init failed", logger.F("err", err.Error()))
		return 1
	}

	bootstrapPeers, err := resolveBootstrapPeers(*cfg, disc, lgr)
	if err != nil {
		lgr.Error("node: bootstrap discovery failed", logger.F("err", err.Error()))
		return 1
	}

	periods := node.MaintenancePeriods{
		Stabilize:        cfg.StabilizePeriod(),
		FixFingers:       cfg.FixFingersPeriod(),
		CheckPredecessor: cfg.CheckPredecessorPeriod(),
	}

	srv, err := server.New(conn, self, cfg.DHT.SuccListSize, bootstrapPeers, periods,
		server.WithLogger(lgr), server.WithTransportTimeout(cfg.TransportTimeout()))
	if err != nil {
		lgr.Error("node: server init failed", logger.F("err", err.Error()))
		conn.Close()
		return 1
	}

	if len(bootstrapPeers) == 0 {
		lgr.Info("creating new ring", logger.FNode("self", self))
		srv.Node().CreateRing()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The event loop must be running before Join: it is what reads the
	// bootstrap peer's reply off the socket and delivers it.
	serveErrCh := make(chan error, 1)
	go func() { serveErrCh <- srv.Run(ctx) }()

	if len(bootstrapPeers) > 0 {
		joinCtx, joinCancel := context.WithTimeout(context.Background(), cfg.TransportTimeout()*3)
		err := srv.Node().Join(joinCtx, bootstrapPeers[0])
		joinCancel()
		if err != nil {
			lgr.Error("node: join failed", logger.FNode("bootstrap", bootstrapPeers[0]), logger.F("err", err.Error()))
			cancel()
			<-serveErrCh
			return 1
		}
		lgr.Info("joined ring", logger.FNode("self", self), logger.FNode("via", bootstrapPeers[0]))
	}

	if cfg.Bootstrap.Register.Enabled && disc != nil {
		regCtx, regCancel := context.WithTimeout(context.Background(), cfg.TransportTimeout()*3)
		err := disc.Register(regCtx, self)
		regCancel()
		if err != nil {
			lgr.Warn("node: self-registration failed", logger.F("err", err.Error()))
		} else {
			defer func() {
				deregCtx, deregCancel := context.WithTimeout(context.Background(), cfg.TransportTimeout()*3)
				defer deregCancel()
				if err := disc.Deregister(deregCtx, self); err != nil {
					lgr.Warn("node: self-deregistration failed", logger.F("err", err.Error()))
				}
			}()
		}
	}

	go runShell(ctx, srv.Node(), lgr)

	select {
	case <-ctx.Done():
	case err := <-serveErrCh:
		if err != nil {
			lgr.Error("node: serve loop exited", logger.F("err", err.Error()))
		}
	}
	cancel()
	<-serveErrCh
	lgr.Info("node: shut down cleanly")
	return 0
}

func newLogger(cfg config.LoggerConfig) (logger.Logger, error) {
	if !cfg.Active {
		return &logger.NopLogger{}, nil
	}
	zl, err := zapfactory.New(cfg)
	if err != nil {
		return nil, err
	}
	return zapfactory.NewZapAdapter(zl), nil
}

// newBootstrapBackend builds the discovery/registration backend named
// by --register (bootstrap.mode): static needs nothing beyond --ja/--jp
// and its Register/Deregister are no-ops, route53 advertises through
// SRV records in a hosted zone, coredns advertises through the etcd key
// space a CoreDNS etcd plugin serves as DNS. A nil disc with no error
// means bootstrap.peers is also empty, i.e. static with nothing to do.
func newBootstrapBackend(cfg config.BootstrapConfig) (bootstrap.Bootstrap, error) {
	switch cfg.Mode {
	case "", "static":
		if len(cfg.Peers) == 0 {
			return nil, nil
		}
		return bootstrap.NewStaticBootstrap(cfg.Peers), nil
	case "route53":
		return bootstrap.NewRoute53Bootstrap(cfg.Route53)
	case "coredns":
		return bootstrap.NewCoreDNSBootstrap(cfg.CoreDNS)
	default:
		return nil, fmt.Errorf("unknown bootstrap.mode %q", cfg.Mode)
	}
}

// resolveBootstrapPeers turns config into a concrete peer list: --ja/--jp
// (or bootstrap.addr/port) takes priority as a single fixed peer,
// falling back to disc.Discover (static peer list, Route53 SRV lookup,
// or a CoreDNS-backed etcd range read) for fleets of more than two
// nodes. An empty result means this node creates a new ring.
func resolveBootstrapPeers(cfg config.Config, disc bootstrap.Bootstrap, lgr logger.Logger) ([]ring.Node, error) {
	if cfg.Bootstrap.Addr != "" {
		n, err := ring.NodeFromAddr(fmt.Sprintf("%s:%d", cfg.Bootstrap.Addr, cfg.Bootstrap.Port))
		if err != nil {
			return nil, err
		}
		return []ring.Node{n}, nil
	}
	if disc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	addrs, err := disc.Discover(ctx)
	if err != nil {
		return nil, err
	}
	peers := make([]ring.Node, 0, len(addrs))
	for _, a := range addrs {
		n, err := ring.NodeFromAddr(a)
		if err != nil {
			lgr.Warn("node: skipping unresolvable discovered peer", logger.F("addr", a), logger.F("err", err.Error()))
			continue
		}
		peers = append(peers, n)
	}
	return peers, nil
}

// runShell drives the interactive stdin commands of spec §6: Lookup and
// PrintState. It runs on its own goroutine, calling into Node directly —
// FindSuccessor issues its own outbound RPCs through the transport, which
// is safe to call from any goroutine; PrintState reads RoutingTable
// through its own lock.
func runShell(ctx context.Context, n *node.Node, lgr logger.Logger) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		input, err := line.Prompt("chordnode> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			return
		}
		line.AppendHistory(input)

		fields := strings.Fields(input)
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "lookup":
			if len(fields) < 2 {
				fmt.Println("usage: Lookup <hex-id>")
				continue
			}
			key, err := parseHexID(fields[1])
			if err != nil {
				fmt.Printf("invalid id: %v\n", err)
				continue
			}
			lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			result, err := n.FindSuccessor(lookupCtx, key)
			cancel()
			if err != nil {
				fmt.Printf("lookup failed: %v\n", err)
				continue
			}
			fmt.Printf("successor(%s) = %s\n", key, result)

		case "printstate":
			n.PrintState(os.Stdout)

		case "exit", "quit":
			return

		default:
			fmt.Printf("unknown command: %s (try Lookup <hex-id> or PrintState)\n", fields[0])
		}
	}
}

func parseHexID(s string) (ring.ID, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	if err != nil {
		return 0, err
	}
	return ring.ID(v), nil
}
