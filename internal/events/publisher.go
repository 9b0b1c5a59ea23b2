package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/clipscribe/clipscribe/internal/logger"
)

// Event types carried on the event topic.
const (
	TypeTranscriptionCompleted = "transcription.completed"
	TypeTranscriptionFailed    = "transcription.failed"
	TypeSubscriptionActivated  = "subscription.activated"
)

// Envelope is the wire form of every published event. Payload holds the
// type-specific body.
type Envelope struct {
	Type       string          `json:"type"`
	UserID     string          `json:"user_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// TranscriptionCompleted is the payload for a finished transcription.
type TranscriptionCompleted struct {
	ProjectID       string  `json:"project_id"`
	DurationSeconds float64 `json:"duration_seconds"`
	WordCount       int     `json:"word_count"`
	SegmentCount    int     `json:"segment_count"`
	FailedChunks    int     `json:"failed_chunks"`
}

// TranscriptionFailed is the payload for a transcription that produced
// no usable output.
type TranscriptionFailed struct {
	ProjectID string `json:"project_id"`
	Reason    string `json:"reason"`
}

// SubscriptionActivated is the payload for a paid-plan activation.
type SubscriptionActivated struct {
	Plan      string    `json:"plan"`
	PeriodEnd time.Time `json:"period_end"`
}

// messageWriter is the slice of kafka-go Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes domain events to a single Kafka topic, keyed by user
// so one user's events stay ordered within a partition.
type Publisher struct {
	cfg Config
	log *logger.Logger
	now func() time.Time

	mu     sync.Mutex
	writer messageWriter
	closed bool
}

// NewPublisher builds a publisher. The writer is initialized lazily on
// first publish so a slow broker cannot stall startup.
func NewPublisher(cfg Config, log *logger.Logger) (*Publisher, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("events publisher config: %w", err)
	}
	return &Publisher{
		cfg: cfg,
		log: log.WithComponent("events"),
		now: time.Now,
	}, nil
}

// Enabled reports whether publishing is active.
func (p *Publisher) Enabled() bool {
	return p.cfg.Enabled
}

// Publish sends one event. Disabled publishers return nil immediately.
func (p *Publisher) Publish(ctx context.Context, eventType, userID string, payload interface{}) error {
	if !p.cfg.Enabled {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	value, err := json.Marshal(Envelope{
		Type:       eventType,
		UserID:     userID,
		OccurredAt: p.now().UTC(),
		Payload:    body,
	})
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", eventType, err)
	}

	writer, err := p.ensureWriter()
	if err != nil {
		return err
	}
	if err := writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(userID),
		Value: value,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

func (p *Publisher) ensureWriter() (messageWriter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, fmt.Errorf("events publisher is closed")
	}
	if p.writer == nil {
		p.writer = &kafkago.Writer{
			Addr:         kafkago.TCP(p.cfg.Brokers...),
			Topic:        p.cfg.Topic,
			Balancer:     &kafkago.LeastBytes{},
			BatchTimeout: p.cfg.BatchTimeout,
			WriteTimeout: p.cfg.WriteTimeout,
			RequiredAcks: kafkago.RequireAll,
			ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
				p.log.Error("writer: "+msg, map[string]interface{}{
					"args": fmt.Sprintf("%v", args),
				})
			}),
		}
		p.log.Info("event publisher initialized", map[string]interface{}{
			"brokers": p.cfg.Brokers,
			"topic":   p.cfg.Topic,
		})
	}
	return p.writer, nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
