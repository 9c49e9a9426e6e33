package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mailforge/mailforge/internal/domain"
)

// TracingRunner wraps a domain.BulkRunner with OpenTelemetry tracing. Each
// batch call becomes one span carrying the operation kind, batch size and
// the settled outcome counts.
type TracingRunner struct {
	next   domain.BulkRunner
	tracer trace.Tracer
}

// Compile-time check: TracingRunner implements domain.BulkRunner.
var _ domain.BulkRunner = (*TracingRunner)(nil)

// NewTracingRunner creates a tracing decorator around the given runner.
func NewTracingRunner(next domain.BulkRunner) *TracingRunner {
	return &TracingRunner{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRunner) Run(ctx context.Context, kind domain.OperationKind, ids []string) (domain.OperationResult, error) {
	ctx, span := r.tracer.Start(ctx, "BulkRunner.Run",
		trace.WithAttributes(
			attribute.String("operation.kind", string(kind)),
			attribute.Int("batch.size", len(ids)),
		),
	)
	defer span.End()

	result, err := r.next.Run(ctx, kind, ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	span.SetAttributes(
		attribute.Int("result.processed", result.Processed),
		attribute.Int("result.succeeded", result.Succeeded),
		attribute.Int("result.failed", result.Failed),
	)
	return result, nil
}
