package gsnauth

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsIncAndSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricRefreshReuseDetected)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("login success = %d, want 2", got)
	}
	if got := m.Value(MetricRefreshReuseDetected); got != 1 {
		t.Fatalf("reuse = %d, want 1", got)
	}

	snap := m.Snapshot()
	if snap.Counters[MetricLoginSuccess] != 2 {
		t.Fatalf("snapshot login success = %d", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricLogout] != 0 {
		t.Fatalf("snapshot logout = %d", snap.Counters[MetricLogout])
	}
	if len(snap.Histograms) != 0 {
		t.Fatalf("histograms present without latency enabled: %v", snap.Histograms)
	}
}

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{})
	m.Inc(MetricLoginSuccess)
	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("value = %d, want 0", got)
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLoginSuccess)
	nilMetrics.Observe(MetricVerifyLatency, time.Millisecond)
	if nilMetrics.Enabled() {
		t.Fatal("nil metrics reported enabled")
	}
	if snap := nilMetrics.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("nil snapshot = %+v", snap)
	}
}

func TestMetricsLatencyBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Observe(MetricVerifyLatency, 2*time.Millisecond)
	m.Observe(MetricVerifyLatency, 30*time.Millisecond)
	m.Observe(MetricVerifyLatency, 2*time.Second)
	// Non-histogram IDs are ignored.
	m.Observe(MetricLoginSuccess, time.Millisecond)

	buckets := m.Snapshot().Histograms[MetricVerifyLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("bucket count = %d", len(buckets))
	}
	if buckets[0] != 1 || buckets[2] != 1 || buckets[7] != 1 {
		t.Fatalf("buckets = %v", buckets)
	}
	var total uint64
	for _, b := range buckets {
		total += b
	}
	if total != 3 {
		t.Fatalf("total observations = %d, want 3", total)
	}
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers, perWorker = 8, 1000
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricRefreshSuccess); got != workers*perWorker {
		t.Fatalf("value = %d, want %d", got, workers*perWorker)
	}
}

func TestEngineCountsOperations(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Metrics.Enabled = true
	})
	ctx := context.Background()

	session, err := engine.Login(ctx, "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	_, _ = engine.Login(ctx, "alice", "wrong")
	if _, err := engine.Refresh(ctx, session.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	_, _ = engine.Refresh(ctx, session.RefreshToken)

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("login success = %d", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricLoginFailure] != 1 {
		t.Fatalf("login failure = %d", snap.Counters[MetricLoginFailure])
	}
	if snap.Counters[MetricRefreshSuccess] != 1 {
		t.Fatalf("refresh success = %d", snap.Counters[MetricRefreshSuccess])
	}
	if snap.Counters[MetricRefreshReuseDetected] != 1 {
		t.Fatalf("reuse detected = %d", snap.Counters[MetricRefreshReuseDetected])
	}
}
