package observability

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/clipscribe/clipscribe/internal/logger"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("SampleRate = %v", cfg.SampleRate)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("Interval = %v", cfg.Interval)
	}
	if cfg.Environment != "development" {
		t.Errorf("Environment = %q", cfg.Environment)
	}
}

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false}, "clipscribe", "test", logger.NewDefault("obs-test"))
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{1.5, "AlwaysOnSampler"},
		{0.0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		if got := samplerFor(tt.rate).Description(); got != tt.want {
			t.Errorf("samplerFor(%v) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}

func TestPipelineMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	m, err := NewPipelineMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("NewPipelineMetrics() error: %v", err)
	}

	ctx := context.Background()
	m.RecordStart(ctx)
	m.RecordEnd(ctx, "creator", "completed", 2*time.Second)
	m.RecordChunkFailures(ctx, 3)
	m.RecordChunkFailures(ctx, 0) // no-op
	m.RecordDenial(ctx, "free", "video limit")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if len(rm.ScopeMetrics) != 1 {
		t.Fatalf("scopes = %d, want 1", len(rm.ScopeMetrics))
	}

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	total, ok := byName["transcription.total"].Data.(metricdata.Sum[int64])
	if !ok || len(total.DataPoints) != 1 || total.DataPoints[0].Value != 1 {
		t.Errorf("transcription.total = %+v", byName["transcription.total"])
	}

	active, ok := byName["transcription.active"].Data.(metricdata.Sum[int64])
	if !ok || len(active.DataPoints) != 1 || active.DataPoints[0].Value != 0 {
		t.Errorf("transcription.active = %+v, want net 0", byName["transcription.active"])
	}

	failures, ok := byName["transcription.chunk_failures"].Data.(metricdata.Sum[int64])
	if !ok || len(failures.DataPoints) != 1 || failures.DataPoints[0].Value != 3 {
		t.Errorf("chunk_failures = %+v", byName["transcription.chunk_failures"])
	}

	denials, ok := byName["admission.denials"].Data.(metricdata.Sum[int64])
	if !ok || len(denials.DataPoints) != 1 || denials.DataPoints[0].Value != 1 {
		t.Errorf("admission.denials = %+v", byName["admission.denials"])
	}

	hist, ok := byName["transcription.duration"].Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 || hist.DataPoints[0].Sum != 2.0 {
		t.Errorf("transcription.duration = %+v", byName["transcription.duration"])
	}
}
