package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "planforge"

// Metrics holds all PlanForge metric instruments.
type Metrics struct {
	PlansRequested  metric.Int64Counter
	PlansPersisted  metric.Int64Counter
	PlannerFailures metric.Int64Counter
	PlannerLatency  metric.Float64Histogram
	PersistDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.PlansRequested, err = meter.Int64Counter("planforge.plans.requested",
		metric.WithDescription("Number of goals sent to the planner"))
	if err != nil {
		return nil, err
	}

	m.PlansPersisted, err = meter.Int64Counter("planforge.plans.persisted",
		metric.WithDescription("Number of plans committed to storage"))
	if err != nil {
		return nil, err
	}

	m.PlannerFailures, err = meter.Int64Counter("planforge.planner.failures",
		metric.WithDescription("Number of failed planner requests"))
	if err != nil {
		return nil, err
	}

	m.PlannerLatency, err = meter.Float64Histogram("planforge.planner.duration_seconds",
		metric.WithDescription("Planner request duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.PersistDuration, err = meter.Float64Histogram("planforge.persist.duration_seconds",
		metric.WithDescription("Plan persistence transaction duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordPlannerCall records one planner round trip. A nil receiver is a no-op.
func (m *Metrics) RecordPlannerCall(ctx context.Context, started time.Time, err error) {
	if m == nil {
		return
	}
	m.PlansRequested.Add(ctx, 1)
	m.PlannerLatency.Record(ctx, time.Since(started).Seconds(),
		metric.WithAttributes(attribute.Bool("error", err != nil)))
	if err != nil {
		m.PlannerFailures.Add(ctx, 1)
	}
}

// RecordPersist records one persistence transaction. A nil receiver is a no-op.
func (m *Metrics) RecordPersist(ctx context.Context, started time.Time, err error) {
	if m == nil {
		return
	}
	m.PersistDuration.Record(ctx, time.Since(started).Seconds(),
		metric.WithAttributes(attribute.Bool("error", err != nil)))
	if err == nil {
		m.PlansPersisted.Add(ctx, 1)
	}
}
