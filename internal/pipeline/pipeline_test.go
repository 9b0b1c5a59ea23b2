package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/clipscribe/clipscribe/internal/apperrors"
	"github.com/clipscribe/clipscribe/internal/caption"
	"github.com/clipscribe/clipscribe/internal/database"
	"github.com/clipscribe/clipscribe/internal/entitlement"
	"github.com/clipscribe/clipscribe/internal/events"
	"github.com/clipscribe/clipscribe/internal/logger"
	"github.com/clipscribe/clipscribe/internal/transcription"
)

type fakeExtractor struct {
	probeDuration float64
	probeErr      error
	rangeCalls    []float64
}

func (f *fakeExtractor) ProbeDuration(context.Context, string) (float64, error) {
	return f.probeDuration, f.probeErr
}

func (f *fakeExtractor) ExtractAudio(_ context.Context, src string) (string, error) {
	return src + ".wav", nil
}

func (f *fakeExtractor) ExtractRange(_ context.Context, src string, startSec, _ float64) (string, error) {
	f.rangeCalls = append(f.rangeCalls, startSec)
	return fmt.Sprintf("%s.%d.wav", src, int(startSec)), nil
}

type fakeProvider struct {
	responses map[string]*transcription.Response
	err       error
	errPaths  map[string]bool
	requests  []transcription.Request
	onCall    func(n int)
}

func (f *fakeProvider) Name() string                     { return "fake" }
func (f *fakeProvider) IsAvailable(context.Context) bool { return true }

func (f *fakeProvider) Transcribe(_ context.Context, req transcription.Request) (*transcription.Response, error) {
	f.requests = append(f.requests, req)
	if f.onCall != nil {
		f.onCall(len(f.requests))
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.errPaths[req.AudioPath] {
		return nil, apperrors.AdapterProcessing(fmt.Errorf("bad chunk"))
	}
	if resp, ok := f.responses[req.AudioPath]; ok {
		return resp, nil
	}
	return &transcription.Response{
		Text:     "hello there",
		Words:    []caption.Word{{Text: "hello", Start: 0.0, End: 0.5}, {Text: "there", Start: 0.6, End: 1.0}},
		Duration: 42.0,
		Language: "english",
	}, nil
}

type fakeGate struct {
	decision   entitlement.Decision
	checkErr   error
	commitErr  error
	committed  []float64
	abandoned  int
	checkedEst float64
}

func (f *fakeGate) Check(_ context.Context, _ *database.User, est float64) (entitlement.Decision, error) {
	f.checkedEst = est
	return f.decision, f.checkErr
}

func (f *fakeGate) Commit(_ context.Context, _ *database.User, actual float64) error {
	f.committed = append(f.committed, actual)
	return f.commitErr
}

func (f *fakeGate) Abandon(context.Context, *database.User) {
	f.abandoned++
}

type fakeProjects struct {
	updates   []database.Project
	updateErr error
}

func (f *fakeProjects) Update(_ context.Context, p *database.Project) error {
	f.updates = append(f.updates, *p)
	return f.updateErr
}

type fakePublisher struct {
	published []string
}

func (f *fakePublisher) Publish(_ context.Context, eventType, _ string, _ interface{}) error {
	f.published = append(f.published, eventType)
	return nil
}

type fixture struct {
	orch      *Orchestrator
	extractor *fakeExtractor
	provider  *fakeProvider
	gate      *fakeGate
	projects  *fakeProjects
	publisher *fakePublisher
	user      *database.User
	project   *database.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	extractor := &fakeExtractor{probeDuration: 1500}
	provider := &fakeProvider{}
	gate := &fakeGate{decision: entitlement.Decision{Allowed: true}}
	projects := &fakeProjects{}
	publisher := &fakePublisher{}
	orch := New(Config{}, extractor, provider, gate, projects, publisher, nil, logger.NewDefault("pipeline-test"))

	user := &database.User{Plan: database.PlanFree}
	user.ID = uuid.New()
	project := &database.Project{UserID: user.ID, Status: database.ProjectProcessing, Quality: "balanced"}
	project.ID = uuid.New()
	return &fixture{orch, extractor, provider, gate, projects, publisher, user, project}
}

func TestRun_SingleShot(t *testing.T) {
	f := newFixture(t)

	result, err := f.orch.Run(context.Background(), f.user, f.project, "/tmp/video.mp4", 10<<20)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(f.provider.requests) != 1 {
		t.Fatalf("provider calls = %d, want 1", len(f.provider.requests))
	}
	if f.provider.requests[0].AudioPath != "/tmp/video.mp4.wav" {
		t.Errorf("audio path = %q", f.provider.requests[0].AudioPath)
	}
	if f.provider.requests[0].Quality != "balanced" {
		t.Errorf("quality = %q", f.provider.requests[0].Quality)
	}
	if len(f.gate.committed) != 1 || f.gate.committed[0] != 42.0 {
		t.Errorf("committed = %v, want [42]", f.gate.committed)
	}
	if f.gate.abandoned != 0 {
		t.Errorf("abandoned = %d, want 0 after commit", f.gate.abandoned)
	}
	if result.WordCount != 2 || result.SegmentCount == 0 {
		t.Errorf("result = %+v", result)
	}
	if f.project.Status != database.ProjectCompleted {
		t.Errorf("project status = %q", f.project.Status)
	}
	if f.project.SRT == "" || f.project.VTT == "" || f.project.SegmentsJSON == "" {
		t.Error("expected caption formats persisted on project")
	}
	if got := f.publisher.published; len(got) != 1 || got[0] != events.TypeTranscriptionCompleted {
		t.Errorf("events = %v", got)
	}
}

func TestRun_EntitlementDenied(t *testing.T) {
	f := newFixture(t)
	f.gate.decision = entitlement.Decision{
		Allowed:         false,
		Reason:          "free video already used",
		RequiresUpgrade: true,
		Usage:           entitlement.UsageSnapshot{Plan: database.PlanFree, VideosUsed: 1, VideoLimit: 1},
	}

	_, err := f.orch.Run(context.Background(), f.user, f.project, "/tmp/video.mp4", 10<<20)
	if apperrors.CodeOf(err) != apperrors.ErrCodeEntitlementDenied {
		t.Fatalf("error = %v, want entitlement denied", err)
	}
	appErr, _ := apperrors.AsAppError(err)
	if appErr.Details["requires_upgrade"] != true {
		t.Errorf("details = %v, want requires_upgrade", appErr.Details)
	}
	snap, ok := appErr.Details["usage"].(entitlement.UsageSnapshot)
	if !ok || snap.VideosUsed != 1 {
		t.Errorf("deny payload must carry the usage snapshot, got %v", appErr.Details["usage"])
	}
	if len(f.provider.requests) != 0 {
		t.Error("provider must not be called when denied")
	}
	if len(f.gate.committed) != 0 || f.gate.abandoned != 0 {
		t.Errorf("gate = %+v, want untouched", f.gate)
	}
	if f.project.Status != database.ProjectFailed {
		t.Errorf("project status = %q", f.project.Status)
	}
}

func TestRun_AdmissionEstimateFromSize(t *testing.T) {
	f := newFixture(t)
	// ~1 MB of source per minute of runtime.
	if _, err := f.orch.Run(context.Background(), f.user, f.project, "/tmp/video.mp4", 5<<20); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if f.gate.checkedEst != 300.0 {
		t.Errorf("estimated duration = %v, want 300", f.gate.checkedEst)
	}
}

func TestRun_Chunked(t *testing.T) {
	f := newFixture(t)
	// 200 MB and 1500s probes into 600s chunks: 0-600, 600-1200, 1200-1500.
	result, err := f.orch.Run(context.Background(), f.user, f.project, "/tmp/big.mp4", 200<<20)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(f.provider.requests) != 3 {
		t.Fatalf("provider calls = %d, want 3", len(f.provider.requests))
	}
	wantStarts := []float64{0, 600, 1200}
	for i, s := range wantStarts {
		if f.extractor.rangeCalls[i] != s {
			t.Errorf("chunk %d start = %v, want %v", i, f.extractor.rangeCalls[i], s)
		}
	}
	if len(f.gate.committed) != 1 || f.gate.committed[0] != 126.0 {
		t.Errorf("committed = %v, want [126] (3x42)", f.gate.committed)
	}
	if result.ChunkCount != 3 || result.FailedChunks != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestRun_ChunkFailureIsolated(t *testing.T) {
	f := newFixture(t)
	f.provider.errPaths = map[string]bool{"/tmp/big.mp4.600.wav": true}

	result, err := f.orch.Run(context.Background(), f.user, f.project, "/tmp/big.mp4", 200<<20)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.FailedChunks != 1 {
		t.Errorf("failed chunks = %d, want 1", result.FailedChunks)
	}
	// Only the two successful chunks count toward usage.
	if len(f.gate.committed) != 1 || f.gate.committed[0] != 84.0 {
		t.Errorf("committed = %v, want [84]", f.gate.committed)
	}
	if !strings.Contains(result.Text, "[chunk 1 failed") {
		t.Errorf("text = %q, want inline failure marker", result.Text)
	}
}

func TestRun_AllChunksFail(t *testing.T) {
	f := newFixture(t)
	f.provider.err = apperrors.AdapterProcessing(fmt.Errorf("audio rejected"))

	_, err := f.orch.Run(context.Background(), f.user, f.project, "/tmp/big.mp4", 200<<20)
	if apperrors.CodeOf(err) != apperrors.ErrCodeAdapterProcessing {
		t.Fatalf("error = %v, want adapter processing", err)
	}
	if len(f.gate.committed) != 0 {
		t.Error("usage must not be committed when nothing transcribed")
	}
	if f.gate.abandoned != 1 {
		t.Errorf("abandoned = %d, want 1", f.gate.abandoned)
	}
	if f.project.Status != database.ProjectFailed {
		t.Errorf("project status = %q", f.project.Status)
	}
	if got := f.publisher.published; len(got) != 1 || got[0] != events.TypeTranscriptionFailed {
		t.Errorf("events = %v", got)
	}
}

func TestRun_SingleShotProviderError(t *testing.T) {
	f := newFixture(t)
	f.provider.err = apperrors.AdapterTimeout("transcribe audio")

	_, err := f.orch.Run(context.Background(), f.user, f.project, "/tmp/video.mp4", 10<<20)
	if apperrors.CodeOf(err) != apperrors.ErrCodeAdapterTimeout {
		t.Fatalf("error = %v, want adapter timeout", err)
	}
	if len(f.gate.committed) != 0 {
		t.Error("usage must not be committed on failure")
	}
	if f.gate.abandoned != 1 {
		t.Errorf("abandoned = %d, want 1", f.gate.abandoned)
	}
}

func TestRun_CancelledKeepsCompletedChunks(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.provider.onCall = func(n int) {
		if n == 2 {
			cancel()
		}
	}

	result, err := f.orch.Run(ctx, f.user, f.project, "/tmp/big.mp4", 200<<20)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(f.provider.requests) != 2 {
		t.Fatalf("provider calls = %d, want 2 (third skipped)", len(f.provider.requests))
	}
	if len(f.gate.committed) != 1 || f.gate.committed[0] != 84.0 {
		t.Errorf("committed = %v, want [84] for completed chunks", f.gate.committed)
	}
	if result.ChunkCount != 2 {
		t.Errorf("chunks = %d, want 2", result.ChunkCount)
	}
}

func TestRun_ProbeFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	f.extractor.probeDuration = 0
	f.extractor.probeErr = fmt.Errorf("ffprobe: invalid data")

	// Fallback assumes a short asset, so one chunk covers it.
	result, err := f.orch.Run(context.Background(), f.user, f.project, "/tmp/big.mp4", 200<<20)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(f.provider.requests) != 1 {
		t.Errorf("provider calls = %d, want 1", len(f.provider.requests))
	}
	if result.ChunkCount != 1 {
		t.Errorf("chunks = %d, want 1", result.ChunkCount)
	}
}

func TestRun_PersistFailureStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.projects.updateErr = fmt.Errorf("disk full")

	result, err := f.orch.Run(context.Background(), f.user, f.project, "/tmp/video.mp4", 10<<20)
	if err != nil {
		t.Fatalf("Run() error: %v, persistence failures must not fail the run", err)
	}
	if result == nil || result.WordCount != 2 {
		t.Fatalf("result = %+v", result)
	}
	// Usage is still recorded even though the project write failed.
	if len(f.gate.committed) != 1 || f.gate.committed[0] != 42.0 {
		t.Errorf("committed = %v, want [42]", f.gate.committed)
	}
	if f.gate.abandoned != 0 {
		t.Errorf("abandoned = %d, want 0 after commit", f.gate.abandoned)
	}
}

func TestRun_CommitFailureStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.gate.commitErr = apperrors.DatabaseError("commit free usage", fmt.Errorf("connection reset"))

	result, err := f.orch.Run(context.Background(), f.user, f.project, "/tmp/video.mp4", 10<<20)
	if err != nil {
		t.Fatalf("Run() error: %v, a commit failure must not retroactively deny the result", err)
	}
	if result == nil || result.DurationSeconds != 42.0 {
		t.Fatalf("result = %+v", result)
	}
	if len(f.gate.committed) != 1 {
		t.Errorf("commit attempts = %d, want 1", len(f.gate.committed))
	}
	// The result is still persisted and announced.
	if len(f.projects.updates) != 1 || f.projects.updates[0].Status != database.ProjectCompleted {
		t.Errorf("updates = %+v, want completed project persisted", f.projects.updates)
	}
	if got := f.publisher.published; len(got) != 1 || got[0] != events.TypeTranscriptionCompleted {
		t.Errorf("events = %v", got)
	}
}

func TestRun_CancelledBeforeAnyChunk(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.orch.Run(ctx, f.user, f.project, "/tmp/big.mp4", 200<<20)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want the cancellation itself", err)
	}
	if len(f.gate.committed) != 0 {
		t.Error("usage must not be committed when nothing transcribed")
	}
	if f.gate.abandoned != 1 {
		t.Errorf("abandoned = %d, want 1", f.gate.abandoned)
	}
	if f.project.Status != database.ProjectFailed {
		t.Errorf("project status = %q", f.project.Status)
	}
}
