// Command lookupctl is a standalone lookup(key) probe: it speaks the
// wire protocol directly against a running node, without joining the
// ring itself. Generalized from an earlier interactive gRPC client that
// supported put/get/delete/getstore/getrt/lookup/use, down to lookup,
// a read-only state query (the node's predecessor and successor list),
// and use to switch the probed node.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"chordnode/internal/ring"
	"chordnode/internal/transport"
	"chordnode/internal/wire"

	"github.com/peterh/liner"
)

// udpClient owns a single unbound UDP socket and the Transport built
// on top of it; it implements transport.Sender directly.
type udpClient struct {
	conn *net.UDPConn
	tr   *transport.Transport
}

func dial(timeout time.Duration) (*udpClient, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, err
	}
	c := &udpClient{conn: conn}
	c.tr = transport.New(c, timeout)
	go c.readLoop()
	return c, nil
}

func (c *udpClient) SendTo(addr *net.UDPAddr, data []byte) error {
	_, err := c.conn.WriteToUDP(data, addr)
	return err
}

func (c *udpClient) readLoop() {
	buf := make([]byte, 2048)
	for {
		n, _, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		corrID, msg, err := wire.DecodePacket(buf[:n])
		if err != nil {
			continue
		}
		c.tr.Deliver(corrID, msg)
	}
}

func (c *udpClient) close() { c.conn.Close() }

func resolvePeer(addr string) (*net.UDPAddr, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return nil, fmt.Errorf("cannot resolve %q", host)
		}
		ip = ips[0]
	}
	return &net.UDPAddr{IP: ip, Port: port}, nil
}

func main() {
	addr := flag.String("addr", "127.0.0.1:4000", "address of a node to probe")
	timeout := flag.Duration("timeout", 2*time.Second, "request timeout")
	flag.Parse()

	log.SetFlags(0)

	client, err := dial(*timeout)
	if err != nil {
		log.Fatalf("lookupctl: failed to open socket: %v", err)
	}
	defer client.close()

	currentAddr := *addr
	peer, err := resolvePeer(currentAddr)
	if err != nil {
		log.Fatalf("lookupctl: %v", err)
	}

	fmt.Printf("chordnode interactive probe. target %s\n", currentAddr)
	fmt.Println("commands: lookup <hex-id> | state | use <addr> | exit")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt(fmt.Sprintf("lookupctl[%s]> ", currentAddr))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println("aborted")
				continue
			}
			break
		}
		line.AppendHistory(input)

		args := strings.Fields(strings.TrimSpace(input))
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "lookup":
			if len(args) < 2 {
				fmt.Println("usage: lookup <hex-id>")
				continue
			}
			key, err := parseHexID(args[1])
			if err != nil {
				fmt.Printf("invalid id: %v\n", err)
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), *timeout)
			start := time.Now()
			resp, err := client.tr.Send(ctx, peer, wire.StartFindSuccessorRequest{Key: key}, transport.RetryOnce)
			cancel()
			if err != nil {
				fmt.Printf("lookup failed: %v | latency=%s\n", err, time.Since(start))
				continue
			}
			r := resp.(wire.StartFindSuccessorResponse)
			fmt.Printf("successor(%s) = %s | latency=%s\n", key, r.Node, time.Since(start))

		case "state":
			ctx, cancel := context.WithTimeout(context.Background(), *timeout)
			predResp, err := client.tr.Send(ctx, peer, wire.GetPredecessorRequest{}, transport.RetryOnce)
			cancel()
			if err != nil {
				fmt.Printf("state query failed: %v\n", err)
				continue
			}
			pred := predResp.(wire.GetPredecessorResponse).Node

			ctx, cancel = context.WithTimeout(context.Background(), *timeout)
			succResp, err := client.tr.Send(ctx, peer, wire.GetSuccessorListRequest{}, transport.RetryOnce)
			cancel()
			if err != nil {
				fmt.Printf("state query failed: %v\n", err)
				continue
			}
			succ := succResp.(wire.GetSuccessorListResponse).Successors

			fmt.Printf("predecessor: %s\n", pred)
			fmt.Println("successor_list:")
			for i, s := range succ {
				fmt.Printf("  [%d] %s\n", i, s)
			}

		case "use":
			if len(args) < 2 {
				fmt.Println("usage: use <addr>")
				continue
			}
			newPeer, err := resolvePeer(args[1])
			if err != nil {
				fmt.Printf("cannot resolve %s: %v\n", args[1], err)
				continue
			}
			peer = newPeer
			currentAddr = args[1]
			fmt.Printf("switched target to %s\n", currentAddr)

		case "exit", "quit":
			fmt.Println("bye")
			return

		default:
			fmt.Printf("unknown command: %s\n", args[0])
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
