package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/clipscribe/clipscribe/internal/logger"
)

type captureWriter struct {
	msgs   []kafkago.Message
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func newTestPublisher(t *testing.T) (*Publisher, *captureWriter) {
	t.Helper()
	p, err := NewPublisher(Config{Enabled: true}, logger.NewDefault("events-test"))
	if err != nil {
		t.Fatalf("NewPublisher() error: %v", err)
	}
	w := &captureWriter{}
	p.writer = w
	p.now = func() time.Time {
		return time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	}
	return p, w
}

func TestPublish_Envelope(t *testing.T) {
	p, w := newTestPublisher(t)

	payload := TranscriptionCompleted{
		ProjectID:       "proj-1",
		DurationSeconds: 312.5,
		WordCount:       840,
		SegmentCount:    120,
	}
	if err := p.Publish(context.Background(), TypeTranscriptionCompleted, "user-1", payload); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "user-1" {
		t.Errorf("key = %q, want user-1", w.msgs[0].Key)
	}

	var env Envelope
	if err := json.Unmarshal(w.msgs[0].Value, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Type != TypeTranscriptionCompleted || env.UserID != "user-1" {
		t.Errorf("envelope = %+v", env)
	}
	if env.OccurredAt != time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC) {
		t.Errorf("occurred_at = %v", env.OccurredAt)
	}

	var got TranscriptionCompleted
	if err := json.Unmarshal(env.Payload, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got != payload {
		t.Errorf("payload = %+v, want %+v", got, payload)
	}
}

func TestPublish_Disabled(t *testing.T) {
	p, err := NewPublisher(Config{Enabled: false}, logger.NewDefault("events-test"))
	if err != nil {
		t.Fatalf("NewPublisher() error: %v", err)
	}
	if p.Enabled() {
		t.Error("expected Enabled()=false")
	}
	if err := p.Publish(context.Background(), TypeTranscriptionFailed, "user-1", TranscriptionFailed{Reason: "x"}); err != nil {
		t.Fatalf("disabled Publish() error: %v", err)
	}
	if p.writer != nil {
		t.Error("disabled publisher must not initialize a writer")
	}
}

func TestPublish_AfterClose(t *testing.T) {
	p, w := newTestPublisher(t)
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if !w.closed {
		t.Error("expected underlying writer closed")
	}
	if err := p.Publish(context.Background(), TypeSubscriptionActivated, "user-1", SubscriptionActivated{Plan: "creator"}); err == nil {
		t.Fatal("expected error publishing after close")
	}
	// Close is idempotent.
	if err := p.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
}
