package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "planforge"

// StartPlannerSpan starts a span for a planner request.
func StartPlannerSpan(ctx context.Context, plannerURL string, goalLen int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "planner.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("planner.url", plannerURL),
			attribute.Int("goal.length", goalLen),
		),
	)
}

// StartPersistSpan starts a span for a plan persistence transaction.
func StartPersistSpan(ctx context.Context, phases, tasks int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "plan.persist",
		trace.WithAttributes(
			attribute.Int("plan.phases", phases),
			attribute.Int("plan.tasks", tasks),
		),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
