package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanReconcile       = "registry.reconcile"
	SpanProducerLoad    = "registry.producer.load"
	SpanProducerDrop    = "registry.producer.unload"
	SpanCatalogRun      = "catalog.run"
	SpanExtensionLoad   = "extension.load"
	SpanExtensionReload = "extension.reload"
)

// Span attribute keys.
const (
	AttrToken    = "registry.token"
	AttrProducer = "registry.producer"
	AttrAdded    = "registry.added"
	AttrRemoved  = "registry.removed"
	AttrBindings = "registry.bindings"

	AttrEntityUID  = "catalog.entity.uid"
	AttrEntityKind = "catalog.entity.kind"
	AttrCancelled  = "catalog.run.cancelled"

	AttrExtension = "extension.name"

	AttrErrorMessage = "error.message"
)

// StartReconcile opens a reconciliation span for one token and producer.
func StartReconcile(ctx context.Context, tracer trace.Tracer, token, producer string) (context.Context, trace.Span) {
	return tracer.Start(ctx, SpanReconcile, trace.WithAttributes(
		attribute.String(AttrToken, token),
		attribute.String(AttrProducer, producer),
	))
}

// EndReconcile records the delta size and ends span.
func EndReconcile(span trace.Span, added, removed int) {
	span.SetAttributes(
		attribute.Int(AttrAdded, added),
		attribute.Int(AttrRemoved, removed),
	)
	span.End()
}

// RecordError marks span as failed.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
}
