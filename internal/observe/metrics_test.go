package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestRecordSync(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSync(ctx, "local", time.Millisecond)
	m.RecordSync(ctx, "local", time.Millisecond)
	m.RecordSync(ctx, "degraded", time.Millisecond)

	rm := collect(t, reader)
	met := findMetric(rm, "storypaint.sync.passes")
	if met == nil {
		t.Fatalf("expected storypaint.sync.passes metric")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", met.Data)
	}
	counts := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("outcome"))
		counts[v.AsString()] = dp.Value
	}
	if counts["local"] != 2 || counts["degraded"] != 1 {
		t.Fatalf("expected local=2 degraded=1, got %v", counts)
	}

	hist := findMetric(rm, "storypaint.sync.duration")
	if hist == nil {
		t.Fatalf("expected storypaint.sync.duration metric")
	}
	h, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok || len(h.DataPoints) == 0 {
		t.Fatalf("expected histogram data points, got %T", hist.Data)
	}
	if got := h.DataPoints[0].Count; got != 3 {
		t.Fatalf("expected 3 observations, got %d", got)
	}
}

func TestEditorSessions(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.SessionOpened(ctx)
	m.SessionOpened(ctx)
	m.SessionClosed(ctx)

	met := findMetric(collect(t, reader), "storypaint.editor.sessions")
	if met == nil {
		t.Fatalf("expected storypaint.editor.sessions metric")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) != 1 {
		t.Fatalf("expected one data point, got %v", met.Data)
	}
	if sum.DataPoints[0].Value != 1 {
		t.Fatalf("expected 1 open session, got %d", sum.DataPoints[0].Value)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordImport(ctx, "canonical", time.Millisecond)
	m.RecordUnparsed(ctx)
	m.RecordSync(ctx, "noop", 0)
	m.RecordFlush(ctx)
	m.SessionOpened(ctx)
	m.SessionClosed(ctx)
}
