package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/clipscribe/clipscribe/internal/apperrors"
	"github.com/clipscribe/clipscribe/internal/logger"
	"github.com/clipscribe/clipscribe/internal/process"
)

// Extractor runs ffmpeg/ffprobe against source files.
type Extractor struct {
	cfg Config
	log *logger.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(cfg Config, log *logger.Logger) (*Extractor, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{cfg: cfg, log: log.WithComponent("media")}, nil
}

// ProbeDuration returns the duration of a media file in seconds.
func (e *Extractor) ProbeDuration(ctx context.Context, path string) (float64, error) {
	result, err := process.Run(ctx, process.Command{
		Binary: e.cfg.FFprobePath,
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			path,
		},
	})
	if err != nil {
		return 0, apperrors.MediaProcessing("probe duration", fmt.Errorf("%w: %s", err, stderrTail(result)))
	}

	raw := strings.TrimSpace(string(result.Stdout))
	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.MediaProcessing("probe duration", fmt.Errorf("unparseable duration %q", raw))
	}
	if duration <= 0 {
		return 0, apperrors.MediaProcessing("probe duration", fmt.Errorf("non-positive duration %v", duration))
	}
	return duration, nil
}

// ExtractRange transcodes a time range of src into a mono 16 kHz WAV
// file and returns its path. A negative duration extracts to the end of
// the source. The caller owns the returned file.
func (e *Extractor) ExtractRange(ctx context.Context, src string, startSec, durationSec float64) (string, error) {
	dst := filepath.Join(e.tempDir(), fmt.Sprintf("chunk-%s.wav", uuid.NewString()))

	args := []string{"-i", src}
	if startSec > 0 {
		args = append(args, "-ss", formatSeconds(startSec))
	}
	if durationSec > 0 {
		args = append(args, "-t", formatSeconds(durationSec))
	}
	args = append(args,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-y", dst,
	)

	result, err := process.Run(ctx, process.Command{Binary: e.cfg.FFmpegPath, Args: args})
	if err != nil {
		os.Remove(dst)
		return "", apperrors.MediaProcessing("extract audio", fmt.Errorf("%w: %s", err, stderrTail(result)))
	}

	e.log.Debug("extracted audio range", map[string]interface{}{
		"src":      src,
		"start":    startSec,
		"duration": durationSec,
	})
	return dst, nil
}

// ExtractAudio transcodes the whole source into mono 16 kHz WAV.
func (e *Extractor) ExtractAudio(ctx context.Context, src string) (string, error) {
	return e.ExtractRange(ctx, src, 0, -1)
}

func (e *Extractor) tempDir() string {
	if e.cfg.TempDir != "" {
		return e.cfg.TempDir
	}
	return os.TempDir()
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

// stderrTail returns the last stderr line of a failed run for error
// context. ffmpeg writes the actionable message last.
func stderrTail(result *process.Result) string {
	if result == nil || len(result.Stderr) == 0 {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(string(result.Stderr)), "\n")
	return lines[len(lines)-1]
}
