package otel

import (
	"context"
	"sync"
	"testing"

	fitAuth "github.com/fitgoal/fitAuth"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot fitAuth.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() fitAuth.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := fitAuth.MetricsSnapshot{
		Counters:   make(map[fitAuth.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[fitAuth.MetricID][]uint64, len(f.snapshot.Histograms)),
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

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

// int64Value returns the single data point of the named instrument.
func int64Value(t *testing.T, rm metricdata.ResourceMetrics, name string) (int64, bool) {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) == 0 {
					return 0, false
				}
				return data.DataPoints[0].Value, true
			case metricdata.Gauge[int64]:
				if len(data.DataPoints) == 0 {
					return 0, false
				}
				return data.DataPoints[0].Value, true
			}
			t.Fatalf("unexpected data for %s: %T", name, m.Data)
		}
	}
	return 0, false
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("fitauth-test")

	src := &fakeSource{
		snapshot: fitAuth.MetricsSnapshot{
			Counters: map[fitAuth.MetricID]uint64{
				fitAuth.MetricLoginSuccess:          3,
				fitAuth.MetricAuthExpiredCredential: 5,
			},
			Histograms: map[fitAuth.MetricID][]uint64{
				fitAuth.MetricAuthenticateLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewExporter(meter, src)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	checks := map[string]int64{
		"fitauth_login_success_total":                          3,
		"fitauth_authenticate_expired_credential_total":        5,
		"fitauth_audit_dropped_total":                          1,
		"fitauth_authenticate_latency_seconds_bucket_le_0_005": 1,
		"fitauth_authenticate_latency_seconds_bucket_le_inf":   8,
		"fitauth_authenticate_latency_seconds_count":           8,
	}
	for name, want := range checks {
		got, ok := int64Value(t, rm, name)
		if !ok {
			t.Fatalf("metric %s not collected", name)
		}
		if got != want {
			t.Fatalf("%s = %d, want %d", name, got, want)
		}
	}
}

func TestExporterSkipsAbsentSeries(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("fitauth-test")

	src := &fakeSource{snapshot: fitAuth.MetricsSnapshot{
		Counters:   map[fitAuth.MetricID]uint64{fitAuth.MetricLogout: 2},
		Histograms: map[fitAuth.MetricID][]uint64{},
	}}

	exp, err := NewExporter(meter, src)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	defer exp.Close()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if got, ok := int64Value(t, rm, "fitauth_logout_total"); !ok || got != 2 {
		t.Fatalf("expected logout counter 2, got %d (present=%v)", got, ok)
	}
	if _, ok := int64Value(t, rm, "fitauth_authenticate_latency_seconds_count"); ok {
		t.Fatal("latency histogram must be absent when disabled")
	}
}

func TestExporterRejectsNilArguments(t *testing.T) {
	_, provider := newReader()
	meter := provider.Meter("fitauth-test")

	if _, err := NewExporter(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewExporter(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("fitauth-test")

	src := &fakeSource{
		snapshot: fitAuth.MetricsSnapshot{
			Counters: map[fitAuth.MetricID]uint64{
				fitAuth.MetricLoginSuccess: 1,
			},
			Histograms: map[fitAuth.MetricID][]uint64{
				fitAuth.MetricAuthenticateLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewExporter(meter, src)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
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
			src.snapshot.Counters[fitAuth.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
