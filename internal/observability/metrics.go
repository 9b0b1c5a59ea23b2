package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics holds the instruments the transcription pipeline
// records against.
type PipelineMetrics struct {
	transcriptionTotal    metric.Int64Counter
	transcriptionDuration metric.Float64Histogram
	transcriptionActive   metric.Int64UpDownCounter
	chunkFailures         metric.Int64Counter
	admissionDenials      metric.Int64Counter
}

// NewPipelineMetrics creates instruments on the given meter. Pass
// Meter("clipscribe") in production; the global no-op meter works for
// tests.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	total, err := meter.Int64Counter("transcription.total",
		metric.WithDescription("Transcriptions finished, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.total counter: %w", err)
	}

	duration, err := meter.Float64Histogram("transcription.duration",
		metric.WithDescription("Wall-clock duration of transcription runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.duration histogram: %w", err)
	}

	active, err := meter.Int64UpDownCounter("transcription.active",
		metric.WithDescription("Transcriptions currently running"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.active gauge: %w", err)
	}

	chunkFailures, err := meter.Int64Counter("transcription.chunk_failures",
		metric.WithDescription("Audio chunks that failed transcription"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.chunk_failures counter: %w", err)
	}

	denials, err := meter.Int64Counter("admission.denials",
		metric.WithDescription("Transcription requests denied by plan limits, by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating admission.denials counter: %w", err)
	}

	return &PipelineMetrics{
		transcriptionTotal:    total,
		transcriptionDuration: duration,
		transcriptionActive:   active,
		chunkFailures:         chunkFailures,
		admissionDenials:      denials,
	}, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// RecordStart marks a transcription run as active.
func (m *PipelineMetrics) RecordStart(ctx context.Context) {
	m.transcriptionActive.Add(ctx, 1)
}

// RecordEnd marks a run finished and records its outcome and duration.
func (m *PipelineMetrics) RecordEnd(ctx context.Context, plan, outcome string, elapsed time.Duration) {
	m.transcriptionActive.Add(ctx, -1)
	m.transcriptionTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("plan", plan),
		attribute.String("outcome", outcome),
	))
	m.transcriptionDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("plan", plan),
	))
}

// RecordChunkFailures counts chunks lost in a run.
func (m *PipelineMetrics) RecordChunkFailures(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	m.chunkFailures.Add(ctx, int64(n))
}

// RecordDenial counts an admission denial by reason.
func (m *PipelineMetrics) RecordDenial(ctx context.Context, plan, reason string) {
	m.admissionDenials.Add(ctx, 1, metric.WithAttributes(
		attribute.String("plan", plan),
		attribute.String("reason", reason),
	))
}
