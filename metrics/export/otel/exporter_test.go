package otel

import (
	"context"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrEthical07/sessionauth"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot sessionauth.MetricsSnapshot
	dropped  uint64
	failed   uint64
}

func (f *fakeSource) MetricsSnapshot() sessionauth.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := sessionauth.MetricsSnapshot{
		Counters:   make(map[sessionauth.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[sessionauth.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func (f *fakeSource) AuditFailed() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.failed
}

// collect gathers single-point instruments by name and bucket points keyed
// by name and le.
func collect(t *testing.T, reader *sdkmetric.ManualReader) (map[string]int64, map[string]int64) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("expected collected metrics, got none")
	}

	got := map[string]int64{}
	buckets := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					got[m.Name] = data.DataPoints[0].Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					if le, ok := dp.Attributes.Value("le"); ok {
						buckets[m.Name+"/"+le.AsString()] = dp.Value
						continue
					}
					got[m.Name] = dp.Value
				}
			}
		}
	}
	return got, buckets
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("sessionauth-test")

	src := &fakeSource{
		snapshot: sessionauth.MetricsSnapshot{
			Counters: map[sessionauth.MetricID]uint64{
				sessionauth.MetricLoginSuccess: 3,
			},
			Histograms: map[sessionauth.MetricID][]uint64{
				sessionauth.MetricRefreshLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
		failed:  2,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	got, buckets := collect(t, reader)
	if got["sessionauth_login_success_total"] != 3 {
		t.Fatalf("expected login success 3, got %d", got["sessionauth_login_success_total"])
	}
	if got["sessionauth_refresh_latency_seconds_count"] != 8 {
		t.Fatalf("expected histogram count 8, got %d", got["sessionauth_refresh_latency_seconds_count"])
	}
	if got["sessionauth_audit_dropped_total"] != 1 {
		t.Fatalf("expected audit dropped 1, got %d", got["sessionauth_audit_dropped_total"])
	}
	if got["sessionauth_audit_failed_total"] != 2 {
		t.Fatalf("expected audit failed 2, got %d", got["sessionauth_audit_failed_total"])
	}
	if v := buckets["sessionauth_refresh_latency_seconds_bucket/0.025"]; v != 3 {
		t.Fatalf("expected le=0.025 bucket 3, got %d", v)
	}
	if v := buckets["sessionauth_refresh_latency_seconds_bucket/+Inf"]; v != 8 {
		t.Fatalf("expected le=+Inf bucket 8, got %d", v)
	}
	if v, ok := buckets["sessionauth_login_latency_seconds_bucket/+Inf"]; !ok || v != 0 {
		t.Fatalf("expected empty login histogram to report zero, got %d (present=%v)", v, ok)
	}
}

func TestExporterCloseStopsCollection(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("sessionauth-test")

	src := &fakeSource{snapshot: sessionauth.MetricsSnapshot{
		Counters: map[sessionauth.MetricID]uint64{sessionauth.MetricLoginSuccess: 5},
	}}
	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	if err := exp.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && len(sum.DataPoints) > 0 && m.Name == "sessionauth_login_success_total" {
				t.Fatalf("expected no observations after Close, got %d", sum.DataPoints[0].Value)
			}
		}
	}
}

func TestExporterRejectsNilSource(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("sessionauth-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("sessionauth-test")

	src := &fakeSource{
		snapshot: sessionauth.MetricsSnapshot{
			Counters: map[sessionauth.MetricID]uint64{
				sessionauth.MetricLoginSuccess: 1,
			},
			Histograms: map[sessionauth.MetricID][]uint64{
				sessionauth.MetricRefreshLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[sessionauth.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
