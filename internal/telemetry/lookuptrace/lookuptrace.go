// Package lookuptrace instruments lookup(key) calls (spec §4.10) with
// OpenTelemetry spans. A gRPC-based service would wrap unary calls with
// interceptors that propagate a "this is a lookup" flag through
// outgoing/incoming metadata; UDP carries no such side channel, so this
// version instruments locally, at the two places a lookup actually
// begins: the blocking client entry point and the recursive forward
// inside a START_FIND_SUCCESSOR handler. Cross-hop propagation across
// datagrams is out of scope.
package lookuptrace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "chordnode/lookuptrace"

var tracer = otel.Tracer(tracerName)

// StartLookup opens a span around a lookup(key) call or one of its
// recursive hops.
func StartLookup(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindInternal))
}
