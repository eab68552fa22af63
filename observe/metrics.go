package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records operation and cache lookup metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records one operation call with its duration and outcome.
	RecordCall(ctx context.Context, meta OpMeta, duration time.Duration, err error)

	// RecordLookup records a cache hit or miss for the operation.
	RecordLookup(ctx context.Context, meta OpMeta, hit bool)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	hitCount     metric.Int64Counter
	missCount    metric.Int64Counter
}

// NewMetrics creates the calltrack instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	m := &metricsImpl{}
	var err error

	if m.totalCount, err = meter.Int64Counter(
		"calltrack.op.total",
		metric.WithDescription("Total number of operation calls"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}

	if m.errorCount, err = meter.Int64Counter(
		"calltrack.op.errors",
		metric.WithDescription("Total number of failed operation calls"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}

	if m.durationHist, err = meter.Float64Histogram(
		"calltrack.op.duration_ms",
		metric.WithDescription("Operation duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.hitCount, err = meter.Int64Counter(
		"calltrack.cache.hits",
		metric.WithDescription("Cache lookups served from the backing store"),
		metric.WithUnit("{lookup}"),
	); err != nil {
		return nil, err
	}

	if m.missCount, err = meter.Int64Counter(
		"calltrack.cache.misses",
		metric.WithDescription("Cache lookups that required an upstream call"),
		metric.WithUnit("{lookup}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func opAttrs(meta OpMeta) metric.MeasurementOption {
	attrs := []attribute.KeyValue{
		attribute.String("op.id", meta.OpID()),
		attribute.String("op.name", meta.Name),
	}
	if meta.Namespace != "" {
		attrs = append(attrs, attribute.String("op.namespace", meta.Namespace))
	}
	return metric.WithAttributes(attrs...)
}

func (m *metricsImpl) RecordCall(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	opt := opAttrs(meta)
	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordLookup(ctx context.Context, meta OpMeta, hit bool) {
	if hit {
		m.hitCount.Add(ctx, 1, opAttrs(meta))
		return
	}
	m.missCount.Add(ctx, 1, opAttrs(meta))
}

type noopMetrics struct{}

func (noopMetrics) RecordCall(context.Context, OpMeta, time.Duration, error) {}
func (noopMetrics) RecordLookup(context.Context, OpMeta, bool)              {}
