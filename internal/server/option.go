package server

import (
	"time"

	"chordnode/internal/logger"
)

// Option is a functional option for configuring the Server.
type Option func(*Server)

// WithLogger injects a custom logger into the Server.
func WithLogger(lgr logger.Logger) Option {
	return func(s *Server) {
		s.lgr = lgr
	}
}

// WithTransportTimeout overrides the default per-RPC timeout (the
// dht.transportTimeoutMs setting; no CLI flag sets it) used when
// constructing the Server's Transport.
func WithTransportTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.transportTimeout = d
	}
}
