package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Observatory bundles metrics and tracing for the connection handler
type Observatory struct {
	Monitor *Monitor
	Tracer  *Tracer
}

// NewObservatory creates a new observatory
func NewObservatory() *Observatory {
	return &Observatory{
		Monitor: NewMonitor(),
		Tracer:  NewTracer(),
	}
}

// Trace covers one connection's handling.
type Trace struct {
	obs   *Observatory
	span  trace.Span
	start time.Time

	route  string
	status int
}

// StartConnection begins observing a connection
func (o *Observatory) StartConnection(ctx context.Context, peer string) (context.Context, *Trace) {
	ctx, span := o.Tracer.StartConnection(ctx, peer)
	return ctx, &Trace{obs: o, span: span, start: time.Now()}
}

// Routed records how the request was answered
func (t *Trace) Routed(method, slug, route string, status int) {
	t.route = route
	t.status = status
	Annotate(t.span, method, slug, route, status)
}

// End finishes the span and records the request when one was routed
func (t *Trace) End(err error) {
	if t.route != "" {
		t.obs.Monitor.RecordRequest(t.route, t.status, time.Since(t.start))
	}
	EndConnection(t.span, err)
}
