// Package observe holds the OpenTelemetry instruments used by the import
// pipeline, the sync engine and the editor bridge.
//
// Tests should build their own [Metrics] with [NewMetrics] and a manual
// reader; [DefaultMetrics] is bound to the global meter provider. All Record
// helpers accept a nil receiver so callers can run without metrics.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "storypaint"

type Metrics struct {
	// ImportDuration tracks one importer parse. Attribute: importer.
	ImportDuration metric.Float64Histogram

	// ImportUnparsed counts texts no importer accepted.
	ImportUnparsed metric.Int64Counter

	// SyncPasses counts reconciliation passes. Attribute: outcome.
	SyncPasses metric.Int64Counter

	SyncDuration metric.Float64Histogram

	// Flushes counts full re-exports of a document.
	Flushes metric.Int64Counter

	// EditorSessions tracks open editor connections.
	EditorSessions metric.Int64UpDownCounter
}

var latencyBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25,
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ImportDuration, err = m.Float64Histogram("storypaint.import.duration",
		metric.WithDescription("Latency of parsing text with one importer."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SyncDuration, err = m.Float64Histogram("storypaint.sync.duration",
		metric.WithDescription("Latency of one edit reconciliation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ImportUnparsed, err = m.Int64Counter("storypaint.import.unparsed",
		metric.WithDescription("Texts that no importer recognised."),
	); err != nil {
		return nil, err
	}
	if met.SyncPasses, err = m.Int64Counter("storypaint.sync.passes",
		metric.WithDescription("Edit reconciliations by outcome."),
	); err != nil {
		return nil, err
	}
	if met.Flushes, err = m.Int64Counter("storypaint.sync.flushes",
		metric.WithDescription("Full document re-exports."),
	); err != nil {
		return nil, err
	}
	if met.EditorSessions, err = m.Int64UpDownCounter("storypaint.editor.sessions",
		metric.WithDescription("Open editor connections."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a Metrics bound to the global meter provider. It
// panics if instrument creation fails, which only happens on programmer
// error.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

func (m *Metrics) RecordImport(ctx context.Context, importer string, d time.Duration) {
	if m == nil {
		return
	}
	m.ImportDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("importer", importer)))
}

func (m *Metrics) RecordUnparsed(ctx context.Context) {
	if m == nil {
		return
	}
	m.ImportUnparsed.Add(ctx, 1)
}

func (m *Metrics) RecordSync(ctx context.Context, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.SyncPasses.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.SyncDuration.Record(ctx, d.Seconds())
}

func (m *Metrics) RecordFlush(ctx context.Context) {
	if m == nil {
		return
	}
	m.Flushes.Add(ctx, 1)
}

func (m *Metrics) SessionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.EditorSessions.Add(ctx, 1)
}

func (m *Metrics) SessionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.EditorSessions.Add(ctx, -1)
}
