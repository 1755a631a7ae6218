// Package trace attaches a per-lookup correlation id to a context, for
// log lines that need to be grouped across the hops of one recursive
// find_successor call without threading an extra parameter through
// every handler.
package trace

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"chordnode/internal/ring"

	"github.com/oklog/ulid/v2"
)

type traceKey struct{}

// GenerateTraceID builds a globally unique trace id: "<nodeID>-<ULID>".
func GenerateTraceID(nodeID string) string {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	id := ulid.MustNew(ulid.Timestamp(t), entropy)
	return fmt.Sprintf("%s-%s", nodeID, id.String())
}

// AttachTraceID generates a trace id from nodeID and stores it in ctx.
func AttachTraceID(ctx context.Context, nodeID ring.ID) (context.Context, string) {
	traceID := GenerateTraceID(nodeID.String())
	return context.WithValue(ctx, traceKey{}, traceID), traceID
}

// GetTraceID returns the trace id stored in ctx, or "" if none.
func GetTraceID(ctx context.Context) string {
	if v := ctx.Value(traceKey{}); v != nil {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	return ""
}
