// Package chorderr collects the sentinel error kinds of spec §7, following
// a sentinel-error idiom (ErrClientNotInPool, ErrNoPredecessor,
// ErrTimeout in internal/client/handler.go) rather than a typed exception
// hierarchy: callers compare with errors.Is, and wrap with fmt.Errorf("%w").
package chorderr

import "errors"

var (
	// Timeout: no reply within deadline. Never fatal; local recovery
	// (clear predecessor, drop dead successor) happens at the call site.
	Timeout = errors.New("chord: rpc timeout")

	// MalformedFrame: wire decode failure. The datagram is dropped and
	// logged at debug level; no counter of dropped frames is kept. The
	// event loop itself never aborts.
	MalformedFrame = errors.New("chord: malformed frame")

	// CorrelationUnknown: a response arrived with no matching pending call.
	CorrelationUnknown = errors.New("chord: unknown correlation id")

	// LookupFailed: a recursive find_successor could not progress.
	LookupFailed = errors.New("chord: lookup failed")

	// SocketError: a send/receive on the UDP socket failed. Permanent
	// socket errors are fatal only at bootstrap (see cmd/node); afterwards
	// they are logged and the datagram is skipped.
	SocketError = errors.New("chord: socket error")

	// ConfigError: invalid configuration. Fatal at startup only.
	ConfigError = errors.New("chord: invalid configuration")
)
