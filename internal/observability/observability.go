// Package observability carries the worker's tracing and dependency-call
// reporting behind a thin handle, so the workflow never binds to a concrete
// telemetry client.
package observability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

type Observability interface {
	// StartProcessingSpan opens a span for one workflow invocation and
	// tags it with the payment and correlation identifiers.
	StartProcessingSpan(ctx context.Context, name string, paymentID, correlationID uuid.UUID) (context.Context, trace.Span)

	// TrackDependency records a single outbound dependency call
	// (store read/write, event publish) with its duration and outcome.
	// Fire-and-forget from the caller's perspective.
	TrackDependency(operation, target string, duration time.Duration, success bool)
}
