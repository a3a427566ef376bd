package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type otelObservability struct {
	tracer trace.Tracer
}

// New returns the process-wide observability handle. Constructed once in
// main and shared by reference; safe for concurrent use.
func New(serviceName string) Observability {
	return &otelObservability{tracer: otel.Tracer(serviceName)}
}

func (o *otelObservability) StartProcessingSpan(ctx context.Context, name string, paymentID, correlationID uuid.UUID) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("payment.id", paymentID.String()),
		attribute.String("payment.correlation_id", correlationID.String()),
	))
}

func (o *otelObservability) TrackDependency(operation, target string, duration time.Duration, success bool) {
	dependencyDuration.
		WithLabelValues(operation, target, strconv.FormatBool(success)).
		Observe(duration.Seconds())
}
