package bootstrap

import (
	"context"

	"chordnode/internal/ring"
)

// StaticBootstrap resolves a fixed, operator-supplied list of peers —
// the --ja/--jp single-peer case is just StaticBootstrap with one
// entry.
type StaticBootstrap struct {
	peers []string
}

func NewStaticBootstrap(peers []string) *StaticBootstrap {
	return &StaticBootstrap{peers: peers}
}

func (s *StaticBootstrap) Discover(ctx context.Context) ([]string, error) {
	return s.peers, nil
}

func (s *StaticBootstrap) Register(ctx context.Context, self ring.Node) error {
	return nil
}

func (s *StaticBootstrap) Deregister(ctx context.Context, self ring.Node) error {
	return nil
}
