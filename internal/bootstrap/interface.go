package bootstrap

import (
	"context"

	"chordnode/internal/ring"
)

// Bootstrap resolves the list of peers a node may join through (spec
// §4.9's join()), and optionally advertises this node to the same
// registry so later joiners can discover it.
type Bootstrap interface {
	// Discover returns known peer addresses ("host:port").
	Discover(ctx context.Context) ([]string, error)
	// Register advertises self, a no-op for backends with no registry.
	Register(ctx context.Context, self ring.Node) error
	// Deregister withdraws the advertisement made by Register.
	Deregister(ctx context.Context, self ring.Node) error
}
