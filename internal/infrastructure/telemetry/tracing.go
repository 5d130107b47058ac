package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer used for service spans
const TracerName = "github.com/larder/backend"

// StartServiceSpan starts an internal span named "{service}.{method}".
// Finish it with EndSpan.
//
//	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "submit_transaction")
//	defer func() { telemetry.EndSpan(span, err) }()
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, service+"."+method,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan records err, if any, sets the status and ends the span
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// ItemAttr tags a span with an item id
func ItemAttr(id uuid.UUID) attribute.KeyValue {
	return attribute.String("larder.item_id", id.String())
}

// LocationAttr tags a span with a location id
func LocationAttr(id uuid.UUID) attribute.KeyValue {
	return attribute.String("larder.location_id", id.String())
}

// TransactionTypeAttr tags a span with a transaction type
func TransactionTypeAttr(t string) attribute.KeyValue {
	return attribute.String("larder.transaction_type", t)
}

// ReferenceAttr tags a span with an external reference
func ReferenceAttr(ref string) attribute.KeyValue {
	return attribute.String("larder.reference", ref)
}

// GetTraceID returns the trace id of the span in ctx, or ""
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
