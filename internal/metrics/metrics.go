// Package metrics instruments the master and worker services through
// OpenTelemetry. No production source for this shape was available to
// adapt directly (only a generated test suite exercising an
// otel counter/histogram/attribute pattern), so the instrument set
// below is built from that documented behavior, scaled down to this
// system's own RPC/cache/placement concerns.
package metrics

import (
	"context"
	"time"
)

// MetricAttr is a small closed vocabulary of attribute values attached
// to latency histograms and counters.
type MetricAttr string

const (
	SuccessfulAttr MetricAttr = "successful"
	FailedAttr     MetricAttr = "failed"
)

// Handle is the metrics surface the master and worker services record
// against. Embedding noopMetrics lets a partial implementation satisfy
// it by overriding only the methods it cares about.
type Handle interface {
	MasterRPCLatency(ctx context.Context, d time.Duration, method string, status MetricAttr)
	WorkerRPCLatency(ctx context.Context, d time.Duration, method string, status MetricAttr)
	CacheAdmission(ctx context.Context, inc int64, status MetricAttr)
	CacheEviction(ctx context.Context, inc int64)
	CacheBytesUsed(ctx context.Context, bytes int64, workerID string)
	WorkerHeartbeat(ctx context.Context, workerID string)
	WorkerTimeout(ctx context.Context, workerID string)
}

// noopMetrics implements Handle with no-ops; embed it in a fake or a
// partial implementation to avoid having to stub every method.
type noopMetrics struct{}

func (noopMetrics) MasterRPCLatency(context.Context, time.Duration, string, MetricAttr) {}
func (noopMetrics) WorkerRPCLatency(context.Context, time.Duration, string, MetricAttr) {}
func (noopMetrics) CacheAdmission(context.Context, int64, MetricAttr)                   {}
func (noopMetrics) CacheEviction(context.Context, int64)                                {}
func (noopMetrics) CacheBytesUsed(context.Context, int64, string)                       {}
func (noopMetrics) WorkerHeartbeat(context.Context, string)                             {}
func (noopMetrics) WorkerTimeout(context.Context, string)                               {}

// NoOp returns a Handle that records nothing, for tests and for
// running without a configured meter provider.
func NoOp() Handle { return noopMetrics{} }
