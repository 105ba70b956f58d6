package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/searchktools/dory"

// Tracer opens one span per handled connection. Without a configured
// TracerProvider the spans are no-ops.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer resolves the tracer from the global provider
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(tracerName)}
}

// StartConnection opens the span covering a connection's whole handling
func (t *Tracer) StartConnection(ctx context.Context, peer string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "dory.connection",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("net.peer.addr", peer)),
	)
}

// Annotate records the routing outcome on the span
func Annotate(span trace.Span, method, slug, route string, status int) {
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("dory.slug", slug),
		attribute.String("dory.route", route),
		attribute.Int("http.status_code", status),
	)
}

// EndConnection closes the span, marking it failed when err is non-nil
func EndConnection(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
