// ABOUTME: Pass and tool-call instruments for the scheduler, plus one span per pass.
// ABOUTME: All record methods are safe on a nil receiver.

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/2389/polis/orchestrator"

// Tool call statuses.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// PassMetrics records scheduler activity.
type PassMetrics struct {
	passes    metric.Int64Counter
	toolCalls metric.Int64Counter
	duration  metric.Float64Histogram
	tracer    trace.Tracer
}

// NewPassMetrics builds the instruments. Nil providers fall back to the
// globals installed by Init.
func NewPassMetrics(mp metric.MeterProvider, tp trace.TracerProvider) (*PassMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	meter := mp.Meter(instrumentationName)

	passes, err := meter.Int64Counter(
		"polis.passes.total",
		metric.WithDescription("Completed and failed actor passes"),
	)
	if err != nil {
		return nil, err
	}

	toolCalls, err := meter.Int64Counter(
		"polis.tool_calls.total",
		metric.WithDescription("Tool calls executed by the scheduler, by tool and status"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"polis.pass.duration",
		metric.WithDescription("Wall time of one pass including the reasoning call"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PassMetrics{
		passes:    passes,
		toolCalls: toolCalls,
		duration:  duration,
		tracer:    tp.Tracer(instrumentationName),
	}, nil
}

// StartPass opens the span for one pass.
func (m *PassMetrics) StartPass(ctx context.Context, actorID string) (context.Context, trace.Span) {
	if m == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return m.tracer.Start(ctx, "polis.pass", trace.WithAttributes(attribute.String("agent_id", actorID)))
}

// RecordPass counts one pass and its duration, and closes the span.
func (m *PassMetrics) RecordPass(ctx context.Context, span trace.Span, actorID string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	attrs := metric.WithAttributes(
		attribute.String("agent_id", actorID),
		attribute.String("outcome", outcome),
	)
	m.passes.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	span.End()
}

// RecordToolCall counts one tool call outcome.
func (m *PassMetrics) RecordToolCall(ctx context.Context, tool, status string) {
	if m == nil {
		return
	}
	m.toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	))
}
