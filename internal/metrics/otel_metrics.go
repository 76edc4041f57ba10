package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "tachyon"

// otelMetrics records every Handle method against the global otel
// MeterProvider. Construct it after the provider (and its exporter,
// typically Prometheus) has been installed by the caller.
type otelMetrics struct {
	noopMetrics

	masterRPCLatency metric.Float64Histogram
	workerRPCLatency metric.Float64Histogram
	cacheAdmission   metric.Int64Counter
	cacheEviction    metric.Int64Counter
	cacheBytesUsed   metric.Int64Gauge
	workerHeartbeats metric.Int64Counter
	workerTimeouts   metric.Int64Counter
}

// NewOTelMetrics creates every instrument on meterName. The exporter
// and MeterProvider lifecycle is owned by cmd/, not here -- this only
// registers instruments against whatever provider is already installed.
func NewOTelMetrics(ctx context.Context) (*otelMetrics, error) {
	meter := otel.Meter(meterName)

	masterRPCLatency, err := meter.Float64Histogram("master/rpc_latency",
		metric.WithDescription("Master RPC handler latency"), metric.WithUnit("us"))
	if err != nil {
		return nil, err
	}
	workerRPCLatency, err := meter.Float64Histogram("worker/rpc_latency",
		metric.WithDescription("Worker RPC handler latency"), metric.WithUnit("us"))
	if err != nil {
		return nil, err
	}
	cacheAdmission, err := meter.Int64Counter("cache/admission_count",
		metric.WithDescription("RequestSpace outcomes"))
	if err != nil {
		return nil, err
	}
	cacheEviction, err := meter.Int64Counter("cache/eviction_count",
		metric.WithDescription("Files evicted from worker storage"))
	if err != nil {
		return nil, err
	}
	cacheBytesUsed, err := meter.Int64Gauge("cache/bytes_used",
		metric.WithDescription("Worker cache bytes in use"))
	if err != nil {
		return nil, err
	}
	workerHeartbeats, err := meter.Int64Counter("worker/heartbeat_count")
	if err != nil {
		return nil, err
	}
	workerTimeouts, err := meter.Int64Counter("worker/timeout_count")
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		masterRPCLatency: masterRPCLatency,
		workerRPCLatency: workerRPCLatency,
		cacheAdmission:   cacheAdmission,
		cacheEviction:    cacheEviction,
		cacheBytesUsed:   cacheBytesUsed,
		workerHeartbeats: workerHeartbeats,
		workerTimeouts:   workerTimeouts,
	}, nil
}

func (m *otelMetrics) MasterRPCLatency(ctx context.Context, d time.Duration, method string, status MetricAttr) {
	m.masterRPCLatency.Record(ctx, float64(d.Microseconds()),
		metric.WithAttributes(attribute.String("method", method), attribute.String("status", string(status))))
}

func (m *otelMetrics) WorkerRPCLatency(ctx context.Context, d time.Duration, method string, status MetricAttr) {
	m.workerRPCLatency.Record(ctx, float64(d.Microseconds()),
		metric.WithAttributes(attribute.String("method", method), attribute.String("status", string(status))))
}

func (m *otelMetrics) CacheAdmission(ctx context.Context, inc int64, status MetricAttr) {
	m.cacheAdmission.Add(ctx, inc, metric.WithAttributes(attribute.String("status", string(status))))
}

func (m *otelMetrics) CacheEviction(ctx context.Context, inc int64) {
	m.cacheEviction.Add(ctx, inc)
}

func (m *otelMetrics) CacheBytesUsed(ctx context.Context, bytes int64, workerID string) {
	m.cacheBytesUsed.Record(ctx, bytes, metric.WithAttributes(attribute.String("worker_id", workerID)))
}

func (m *otelMetrics) WorkerHeartbeat(ctx context.Context, workerID string) {
	m.workerHeartbeats.Add(ctx, 1, metric.WithAttributes(attribute.String("worker_id", workerID)))
}

func (m *otelMetrics) WorkerTimeout(ctx context.Context, workerID string) {
	m.workerTimeouts.Add(ctx, 1, metric.WithAttributes(attribute.String("worker_id", workerID)))
}
