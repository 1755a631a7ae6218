package node

import (
	"context"
	"fmt"

	"chordnode/internal/chorderr"
	"chordnode/internal/ring"
	"chordnode/internal/transport"
	"chordnode/internal/wire"
)

// CreateRing initializes a lone-node ring (spec §4.9 create()):
// predecessor empty, successor_list = [self], every finger = self.
func (n *Node) CreateRing() {
	n.rt.InitSingleNode()
}

// Join performs spec §4.9's join(bootstrap): a single blocking
// start_find_successor(self.id) RPC against the bootstrap peer, whose
// reply becomes successor_list[0]. Predecessor stays empty until a
// NOTIFY arrives; subsequent maintenance ticks converge the rest.
func (n *Node) Join(ctx context.Context, bootstrap ring.Node) error {
	resp, err := n.tr.Send(ctx, bootstrap.UDPAddr(), wire.StartFindSuccessorRequest{Key: n.self.ID}, transport.RetryOnce)
	if err != nil {
		return fmt.Errorf("node: join via %s: %w", bootstrap, err)
	}
	r, ok := resp.(wire.StartFindSuccessorResponse)
	if !ok {
		return chorderr.LookupFailed
	}
	n.rt.SetSuccessorList([]ring.Node{r.Node})
	return nil
}
