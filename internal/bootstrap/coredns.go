package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	chordconfig "chordnode/internal/config"
	"chordnode/internal/ring"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// CoreDNSBootstrap discovers and advertises peers through etcd records
// of the shape CoreDNS's etcd plugin serves as DNS, the way a fleet
// running CoreDNS in front of etcd would resolve _chord._tcp SRV
// lookups without this node needing a DNS client of its own — it reads
// and writes the same key space CoreDNS reads.
type CoreDNSBootstrap struct {
	client   *clientv3.Client
	basePath string
	domain   string
	ttl      int64
	leaseID  clientv3.LeaseID
}

// coreDNSRecord mirrors the etcd plugin's record schema: host, port and
// SRV-style priority/weight, plus an optional per-record TTL.
type coreDNSRecord struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Priority int    `json:"priority"`
	Weight   int    `json:"weight"`
	TTL      int64  `json:"ttl,omitempty"`
}

func NewCoreDNSBootstrap(cfg chordconfig.CoreDNSConfig) (*CoreDNSBootstrap, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.EtcdEndpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: coredns etcd dial: %w", err)
	}
	return &CoreDNSBootstrap{
		client:   cli,
		basePath: strings.TrimSuffix(cfg.BasePath, "/"),
		domain:   strings.TrimSuffix(cfg.Domain, "."),
		ttl:      cfg.TTL,
	}, nil
}

// key returns the shared etcd path a CoreDNS etcd plugin would serve as
// one SRV record under _chord._tcp.<domain>.
func (c *CoreDNSBootstrap) key(nodeID string) string {
	return fmt.Sprintf("%s/%s/_chord/_tcp/%s", c.basePath, c.domain, nodeID)
}

func (c *CoreDNSBootstrap) prefix() string {
	return fmt.Sprintf("%s/%s/_chord/_tcp/", c.basePath, c.domain)
}

// Discover range-reads every record under the shared prefix and returns
// each as a "host:port" address, the peer-list shape every other
// Bootstrap backend returns.
func (c *CoreDNSBootstrap) Discover(ctx context.Context) ([]string, error) {
	resp, err := c.client.Get(ctx, c.prefix(), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("bootstrap: coredns range get: %w", err)
	}
	var addrs []string
	for _, kv := range resp.Kvs {
		var rec coreDNSRecord
		if err := json.Unmarshal(kv.Value, &rec); err != nil {
			continue
		}
		addrs = append(addrs, fmt.Sprintf("%s:%d", rec.Host, rec.Port))
	}
	return addrs, nil
}

// Register grants a lease scoped to the configured TTL and puts self's
// record under it, so an operator who stops renewing (or whose node
// dies) ages out of discovery automatically instead of needing an
// explicit cleanup pass.
func (c *CoreDNSBootstrap) Register(ctx context.Context, self ring.Node) error {
	rec := coreDNSRecord{Host: self.IP.String(), Port: int(self.Port), Priority: 10, Weight: 100, TTL: c.ttl}
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("bootstrap: marshal coredns record: %w", err)
	}
	lease, err := c.client.Grant(ctx, c.ttl)
	if err != nil {
		return fmt.Errorf("bootstrap: grant lease: %w", err)
	}
	c.leaseID = lease.ID
	if _, err := c.client.Put(ctx, c.key(self.ID.String()), string(val), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("bootstrap: put coredns record: %w", err)
	}
	return nil
}

// Deregister removes self's record immediately rather than waiting out
// the lease TTL, so a clean shutdown doesn't leave a stale entry for
// the lease's full duration.
func (c *CoreDNSBootstrap) Deregister(ctx context.Context, self ring.Node) error {
	_, err := c.client.Delete(ctx, c.key(self.ID.String()))
	return err
}

// Renew keeps the registration alive between Register and Deregister;
// a CoreDNS-backed node must call this more often than its TTL or its
// record expires out from under it mid-session.
func (c *CoreDNSBootstrap) Renew(ctx context.Context) error {
	if c.leaseID == 0 {
		return fmt.Errorf("bootstrap: no active lease, call Register first")
	}
	_, err := c.client.KeepAliveOnce(ctx, c.leaseID)
	return err
}

func (c *CoreDNSBootstrap) Close() error {
	return c.client.Close()
}
