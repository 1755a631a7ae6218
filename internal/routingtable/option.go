package routingtable

import "chordnode/internal/logger"

// Option configures a RoutingTable at construction time.
type Option func(*RoutingTable)

// WithLogger injects a structured logger.
func WithLogger(l logger.Logger) Option {
	return func(rt *RoutingTable) {
		rt.logger = l
	}
}
