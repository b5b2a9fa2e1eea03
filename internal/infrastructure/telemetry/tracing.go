package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer used for ledger spans
const TracerName = "building-ledger"

// Ledger span attribute keys
const (
	AttrBuildingID  = attribute.Key("ledger.building_id")
	AttrBuildingIDs = attribute.Key("ledger.building_ids")
)

// BuildingIDs is the attribute naming the buildings a span locks or reads
func BuildingIDs(ids ...uuid.UUID) attribute.KeyValue {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = id.String()
	}
	return AttrBuildingIDs.StringSlice(s)
}

// StartSpan starts an internal span on the global tracer provider.
//
//	ctx, span := telemetry.StartSpan(ctx, "billing.recompute_unit", telemetry.AttrBuildingID.String(id))
//	defer telemetry.EndSpan(span, &err)
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan marks span failed when *errp holds an error, then ends it
func EndSpan(span trace.Span, errp *error) {
	if errp != nil && *errp != nil {
		span.RecordError(*errp)
		span.SetStatus(codes.Error, (*errp).Error())
	}
	span.End()
}

// TraceID is the trace of the span in ctx, or "" when there is none
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
