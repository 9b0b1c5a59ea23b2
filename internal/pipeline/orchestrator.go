package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/clipscribe/clipscribe/internal/apperrors"
	"github.com/clipscribe/clipscribe/internal/caption"
	"github.com/clipscribe/clipscribe/internal/database"
	"github.com/clipscribe/clipscribe/internal/entitlement"
	"github.com/clipscribe/clipscribe/internal/events"
	"github.com/clipscribe/clipscribe/internal/logger"
	"github.com/clipscribe/clipscribe/internal/media"
	"github.com/clipscribe/clipscribe/internal/observability"
	"github.com/clipscribe/clipscribe/internal/splitter"
	"github.com/clipscribe/clipscribe/internal/transcription"
)

// Config holds pipeline tuning knobs.
type Config struct {
	// SingleShotMaxBytes is the largest source sent to the provider in
	// one call. Bigger sources are split into chunks.
	SingleShotMaxBytes int64 `yaml:"single_shot_max_bytes" mapstructure:"single_shot_max_bytes"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.SingleShotMaxBytes == 0 {
		c.SingleShotMaxBytes = 75 << 20
	}
}

// AudioExtractor probes and carves audio from a source asset.
type AudioExtractor interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	ExtractAudio(ctx context.Context, src string) (string, error)
	ExtractRange(ctx context.Context, src string, startSec, durationSec float64) (string, error)
}

// Admission decides and records plan usage for transcription runs.
type Admission interface {
	Check(ctx context.Context, user *database.User, estimatedDurationSeconds float64) (entitlement.Decision, error)
	Commit(ctx context.Context, user *database.User, actualDurationSeconds float64) error
	Abandon(ctx context.Context, user *database.User)
}

// ProjectWriter persists transcription results. Persistence is
// best-effort: a write failure never fails a finished run.
type ProjectWriter interface {
	Update(ctx context.Context, project *database.Project) error
}

// Publisher emits domain events. May be nil.
type Publisher interface {
	Publish(ctx context.Context, eventType, userID string, payload interface{}) error
}

// Result is the output of one completed run.
type Result struct {
	Text            string
	Segments        []caption.Segment
	Formats         caption.Formats
	DurationSeconds float64
	Language        string
	WordCount       int
	SegmentCount    int
	ChunkCount      int
	FailedChunks    int
}

// Orchestrator runs media assets through the transcription pipeline.
type Orchestrator struct {
	cfg       Config
	extractor AudioExtractor
	provider  transcription.Provider
	gate      Admission
	projects  ProjectWriter
	events    Publisher
	metrics   *observability.PipelineMetrics
	log       *logger.Logger
}

// New builds an Orchestrator. events and metrics may be nil.
func New(cfg Config, extractor AudioExtractor, provider transcription.Provider, gate Admission,
	projects ProjectWriter, pub Publisher, metrics *observability.PipelineMetrics, log *logger.Logger) *Orchestrator {
	cfg.ApplyDefaults()
	return &Orchestrator{
		cfg:       cfg,
		extractor: extractor,
		provider:  provider,
		gate:      gate,
		projects:  projects,
		events:    pub,
		metrics:   metrics,
		log:       log.WithComponent("pipeline"),
	}
}

// Run transcribes the media file at mediaPath on behalf of user,
// updating project with the outcome. The project must already be
// persisted with status processing.
func (o *Orchestrator) Run(ctx context.Context, user *database.User, project *database.Project, mediaPath string, sizeBytes int64) (*Result, error) {
	started := time.Now()
	log := o.log.WithFields(map[string]interface{}{
		"user_id":    user.ID.String(),
		"project_id": project.ID.String(),
	})

	estimated := media.EstimateDurationSeconds(sizeBytes)
	decision, err := o.gate.Check(ctx, user, estimated)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		if o.metrics != nil {
			o.metrics.RecordDenial(ctx, user.Plan, decision.Reason)
		}
		o.markFailed(ctx, project)
		return nil, apperrors.EntitlementDenied(decision.Reason, decision.RequiresUpgrade).
			WithDetail("usage", decision.Usage)
	}

	committed := false
	defer func() {
		// A reserved free slot must not leak when the run dies between
		// admission and commit. Abandon is a no-op for paid plans.
		if !committed {
			o.gate.Abandon(context.WithoutCancel(ctx), user)
		}
	}()

	if o.metrics != nil {
		o.metrics.RecordStart(ctx)
		defer func() {
			outcome := "failed"
			if committed {
				outcome = "completed"
			}
			o.metrics.RecordEnd(ctx, user.Plan, outcome, time.Since(started))
		}()
	}

	var chunks []caption.ChunkTranscript
	var actualDuration float64
	if sizeBytes <= o.cfg.SingleShotMaxBytes {
		chunks, actualDuration, err = o.runSingleShot(ctx, project, mediaPath, log)
	} else {
		chunks, actualDuration, err = o.runChunked(ctx, project, mediaPath, sizeBytes, log)
	}
	if err != nil {
		o.markFailed(ctx, project)
		return nil, err
	}

	timeline := caption.Reassemble(chunks)
	if o.metrics != nil {
		o.metrics.RecordChunkFailures(ctx, len(timeline.FailedChunks))
	}
	if timeline.AllFailed() {
		o.markFailed(ctx, project)
		o.publish(ctx, events.TypeTranscriptionFailed, user, events.TranscriptionFailed{
			ProjectID: project.ID.String(),
			Reason:    "no chunk produced a transcript",
		})
		return nil, apperrors.AdapterProcessing(firstChunkError(chunks))
	}

	segments := caption.GroupWords(timeline.Words)
	formats, err := caption.Serialize(segments)
	if err != nil {
		o.markFailed(ctx, project)
		return nil, err
	}

	// Usage is recorded exactly once, with what actually transcribed. A
	// partially cancelled chunked run still pays for completed chunks.
	commitCtx := context.WithoutCancel(ctx)
	if err := o.gate.Commit(commitCtx, user, actualDuration); err != nil {
		log.Error("usage commit failed after successful transcription", map[string]interface{}{
			"error":            err.Error(),
			"duration_seconds": actualDuration,
		})
	}
	committed = true

	result := &Result{
		Text:            timeline.Text,
		Segments:        segments,
		Formats:         formats,
		DurationSeconds: actualDuration,
		Language:        timeline.Language,
		WordCount:       timeline.TotalWords,
		SegmentCount:    len(segments),
		ChunkCount:      len(chunks),
		FailedChunks:    len(timeline.FailedChunks),
	}

	project.Status = database.ProjectCompleted
	project.Language = timeline.Language
	project.DurationSeconds = actualDuration
	project.FullText = timeline.Text
	project.SegmentsJSON = formats.JSON
	project.SRT = formats.SRT
	project.VTT = formats.VTT
	project.WordCount = result.WordCount
	project.SegmentCount = result.SegmentCount
	project.FailedChunks = result.FailedChunks
	if err := o.projects.Update(commitCtx, project); err != nil {
		log.Warn("persisting transcription result failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	o.publish(commitCtx, events.TypeTranscriptionCompleted, user, events.TranscriptionCompleted{
		ProjectID:       project.ID.String(),
		DurationSeconds: actualDuration,
		WordCount:       result.WordCount,
		SegmentCount:    result.SegmentCount,
		FailedChunks:    result.FailedChunks,
	})

	log.Info("transcription finished", logger.Fields(
		"duration_seconds", actualDuration,
		"words", result.WordCount,
		"segments", result.SegmentCount,
		"chunks", result.ChunkCount,
		"failed_chunks", result.FailedChunks,
		"elapsed", time.Since(started).String(),
	))
	return result, nil
}

// runSingleShot extracts the whole audio track and transcribes it in
// one provider call. Cancellation surfaces as an error so nothing is
// committed.
func (o *Orchestrator) runSingleShot(ctx context.Context, project *database.Project, mediaPath string, log *logger.Logger) ([]caption.ChunkTranscript, float64, error) {
	audioPath, err := o.extractor.ExtractAudio(ctx, mediaPath)
	if err != nil {
		return nil, 0, err
	}
	defer os.Remove(audioPath)

	resp, err := o.provider.Transcribe(ctx, transcription.Request{
		AudioPath: audioPath,
		Language:  project.Language,
		Quality:   project.Quality,
	})
	if err != nil {
		return nil, 0, err
	}

	log.Debug("single-shot transcription done", logger.Fields(
		"duration_seconds", resp.Duration,
		"words", len(resp.Words),
	))
	return []caption.ChunkTranscript{{
		Index:    0,
		Words:    resp.Words,
		Text:     resp.Text,
		Duration: resp.Duration,
		Language: resp.Language,
	}}, resp.Duration, nil
}

// runChunked splits the source into ranges and transcribes them
// sequentially. A failed chunk is recorded and the run continues;
// cancellation stops the loop but keeps completed chunks.
func (o *Orchestrator) runChunked(ctx context.Context, project *database.Project, mediaPath string, sizeBytes int64, log *logger.Logger) ([]caption.ChunkTranscript, float64, error) {
	totalDuration, err := o.extractor.ProbeDuration(ctx, mediaPath)
	if err != nil {
		log.Warn("duration probe failed, using fallback chunking", map[string]interface{}{
			"error": err.Error(),
		})
		totalDuration = 0
	}

	split := splitter.New(o.extractor, o.log)
	ranges := split.Split(totalDuration, sizeBytes)
	log.Info("chunked transcription planned", logger.Fields(
		"chunks", len(ranges),
		"total_duration", totalDuration,
		"size_bytes", sizeBytes,
	))

	var chunks []caption.ChunkTranscript
	var actualDuration float64
	for _, r := range ranges {
		if ctx.Err() != nil {
			break
		}

		chunk := caption.ChunkTranscript{Index: r.Index, StartOffset: r.Start}
		wavPath, err := split.Extract(ctx, mediaPath, r)
		if err != nil {
			chunk.Err = err
			chunks = append(chunks, chunk)
			continue
		}

		resp, err := o.provider.Transcribe(ctx, transcription.Request{
			AudioPath: wavPath,
			Language:  project.Language,
			Quality:   project.Quality,
		})
		os.Remove(wavPath)
		if err != nil {
			log.Warn("chunk transcription failed", map[string]interface{}{
				"chunk": r.Index,
				"error": err.Error(),
			})
			chunk.Err = err
			chunks = append(chunks, chunk)
			continue
		}

		chunk.Words = resp.Words
		chunk.Text = resp.Text
		chunk.Duration = resp.Duration
		chunk.Language = resp.Language
		chunks = append(chunks, chunk)
		actualDuration += resp.Duration
	}

	if len(chunks) == 0 {
		// Cancelled before any chunk finished; surface the cancellation
		// itself, same as the single-shot path.
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		return nil, 0, apperrors.MediaProcessing("split source", nil)
	}
	return chunks, actualDuration, nil
}

func (o *Orchestrator) markFailed(ctx context.Context, project *database.Project) {
	project.Status = database.ProjectFailed
	if err := o.projects.Update(context.WithoutCancel(ctx), project); err != nil {
		o.log.Warn("marking project failed", map[string]interface{}{
			"project_id": project.ID.String(),
			"error":      err.Error(),
		})
	}
}

func (o *Orchestrator) publish(ctx context.Context, eventType string, user *database.User, payload interface{}) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(ctx, eventType, user.ID.String(), payload); err != nil {
		o.log.Warn("event publish failed", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}

func firstChunkError(chunks []caption.ChunkTranscript) error {
	for _, c := range chunks {
		if c.Err != nil {
			return c.Err
		}
	}
	return nil
}
