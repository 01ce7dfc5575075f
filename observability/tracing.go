package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/xraph/usersync"

// Tracer provides OpenTelemetry tracing for deliveries.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer from the global provider.
func NewTracer() *Tracer {
	return NewTracerFrom(otel.GetTracerProvider())
}

// NewTracerFrom creates a tracer from tp.
func NewTracerFrom(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(tracerName)}
}

// StartDeliverySpan starts a span for one delivery attempt.
func (t *Tracer) StartDeliverySpan(ctx context.Context, deliveryID, eventID, realmID string, attempt int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "usersync.delivery",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("usersync.delivery_id", deliveryID),
			attribute.String("usersync.event_id", eventID),
			attribute.String("usersync.realm_id", realmID),
			attribute.Int("usersync.attempt", attempt),
		),
	)
}

// EndDeliverySpan ends a delivery span with result attributes.
func (t *Tracer) EndDeliverySpan(span trace.Span, statusCode, latencyMs int, err string) {
	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.Int("usersync.latency_ms", latencyMs),
	)
	if err != "" {
		span.SetAttributes(attribute.String("usersync.error", err))
		span.SetStatus(codes.Error, err)
	}
	span.End()
}
