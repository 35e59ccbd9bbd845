package boundary

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/harrison/lintbox/internal/models"
)

// Package-level tracer and meter for boundary invocations.
var (
	tracer = otel.Tracer("lintbox.boundary")
	meter  = otel.Meter("lintbox.boundary")
)

var (
	invocationLatency metric.Float64Histogram
	invocationTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		invocationLatency, err = meter.Float64Histogram(
			"lintbox_boundary_duration_seconds",
			metric.WithDescription("Duration of isolated lint invocations, including context and worker setup"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		invocationTotal, err = meter.Int64Counter(
			"lintbox_boundary_invocations_total",
			metric.WithDescription("Total number of isolated lint invocations by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startInvocationSpan creates a span covering one RunLint call.
func startInvocationSpan(ctx context.Context, workerName, projectFile string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "boundary.RunLint",
		trace.WithAttributes(
			attribute.String("lint.worker", workerName),
			attribute.String("lint.project_file", projectFile),
		),
	)
}

// endInvocationSpan records the outcome on span and ends it.
func endInvocationSpan(span trace.Span, contextID string, result *models.Result, err error) {
	if contextID != "" {
		span.SetAttributes(attribute.String("lint.context_id", contextID))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, KindName(err))
	} else if result != nil {
		span.SetAttributes(
			attribute.Int("lint.error_count", result.Errors),
			attribute.Int("lint.warning_count", result.Warnings),
			attribute.String("lint.status", result.Status),
		)
	}
	span.End()
}

// recordInvocationMetrics records latency and outcome for one RunLint call.
func recordInvocationMetrics(ctx context.Context, workerName string, duration time.Duration, err error) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("worker", workerName),
		attribute.String("outcome", KindName(err)),
	)
	invocationLatency.Record(ctx, duration.Seconds(), attrs)
	invocationTotal.Add(ctx, 1, attrs)
}
