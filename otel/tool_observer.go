package otel

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/hkomcp/tool"
)

// Metric and span names emitted by ToolObserver.
const (
	MetricInvocations = "hkomcp.tool.invocations"
	MetricFailures    = "hkomcp.tool.failures"
	MetricLatency     = "hkomcp.tool.latency"
	SpanToolInvoke    = "tool.invoke"
)

// ToolObserver records tool invocation results into OpenTelemetry.
type ToolObserver struct {
	tracer trace.Tracer
	now    func() time.Time

	invocations metric.Int64Counter
	failures    metric.Int64Counter
	latency     metric.Float64Histogram
}

// NewToolObserver creates a tool observer bound to the provided meter/tracer.
// A nil tracer disables spans.
func NewToolObserver(meter metric.Meter, tracer trace.Tracer) (*ToolObserver, error) {
	invocations, err := meter.Int64Counter(
		MetricInvocations,
		metric.WithDescription("Number of tool invocations"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter(
		MetricFailures,
		metric.WithDescription("Number of failed tool invocations by error kind"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		MetricLatency,
		metric.WithDescription("Tool latency in seconds, including the upstream fetch"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &ToolObserver{
		tracer:      tracer,
		now:         time.Now,
		invocations: invocations,
		failures:    failures,
		latency:     latency,
	}, nil
}

// ObserveInvoke records one invocation result.
func (o *ToolObserver) ObserveInvoke(observation tool.InvokeObservation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool_name", observation.ToolName),
		attribute.String("format", string(observation.Format)),
		attribute.Bool("success", observation.Success),
	}
	if observation.StatusCode != 0 {
		attrs = append(attrs, attribute.String("status_code", strconv.Itoa(observation.StatusCode)))
	}
	if observation.ErrorCode != "" {
		attrs = append(attrs, attribute.String("error_code", observation.ErrorCode))
	}

	ctx := context.Background()
	options := metric.WithAttributes(attrs...)
	duration := time.Duration(observation.DurationMS) * time.Millisecond
	o.invocations.Add(ctx, 1, options)
	o.latency.Record(ctx, duration.Seconds(), options)
	if !observation.Success {
		o.failures.Add(ctx, 1, options)
	}

	if o.tracer == nil {
		return
	}
	// The observation arrives after the fact, so the span is back-dated.
	end := o.now()
	_, span := o.tracer.Start(ctx, SpanToolInvoke,
		trace.WithTimestamp(end.Add(-duration)),
		trace.WithAttributes(append(attrs, attribute.String("request_id", observation.RequestID))...),
	)
	if !observation.Success {
		span.SetStatus(codes.Error, observation.ErrorCode)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(end))
}

var _ tool.Observer = (*ToolObserver)(nil)
