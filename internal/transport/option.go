package transport

import "chordnode/internal/logger"

// Option configures a Transport at construction time.
type Option func(*Transport)

// WithLogger injects a structured logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Transport) {
		t.logger = l
	}
}
