package node

import (
	"chordnode/internal/logger"
	"chordnode/internal/ring"
)

// Option configures a Node at construction time.
type Option func(*Node)

// WithLogger injects a structured logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Node) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithBootstrapPeers records the CLI's --ja/--jp bootstrap peer (and any
// further fallbacks) for use by the successor-list-exhaustion rejoin
// path of spec §4.6.
func WithBootstrapPeers(peers ...ring.Node) Option {
	return func(n *Node) {
		n.bootstrapPeers = peers
	}
}
