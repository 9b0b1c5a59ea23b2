// Package splitter partitions a source asset into contiguous time
// ranges for chunked transcription.
//
// Larger files get shorter chunks to bound peak memory during
// extraction. The split itself is pure arithmetic; carving the audio for
// each range is delegated to the media extractor.
package splitter

import (
	"context"
	"math"

	"github.com/clipscribe/clipscribe/internal/logger"
)

// Chunk duration tiers by source byte size.
const (
	largeSizeBytes  = 500 << 20
	mediumSizeBytes = 100 << 20

	largeChunkSeconds   = 300.0
	mediumChunkSeconds  = 600.0
	defaultChunkSeconds = 900.0

	// FallbackDurationSeconds is assumed when the source duration cannot
	// be probed.
	FallbackDurationSeconds = 300.0
)

// Range is a contiguous [Start, End) slice of the source timeline.
type Range struct {
	Index int
	Start float64
	End   float64
}

// Duration returns the range length in seconds.
func (r Range) Duration() float64 {
	return r.End - r.Start
}

// TargetChunkSeconds picks the per-chunk duration for a source of the
// given byte size.
func TargetChunkSeconds(sizeBytes int64) float64 {
	switch {
	case sizeBytes > largeSizeBytes:
		return largeChunkSeconds
	case sizeBytes > mediumSizeBytes:
		return mediumChunkSeconds
	default:
		return defaultChunkSeconds
	}
}

// Plan partitions totalDuration into contiguous ranges of at most
// chunkSeconds each. The last range is clamped to the total duration. A
// non-positive chunkSeconds falls back to the default tier; a
// non-positive duration assumes the probe-failure fallback.
func Plan(totalDuration, chunkSeconds float64) []Range {
	if chunkSeconds <= 0 {
		chunkSeconds = defaultChunkSeconds
	}
	if totalDuration <= 0 {
		totalDuration = FallbackDurationSeconds
	}

	numChunks := int(math.Ceil(totalDuration / chunkSeconds))
	ranges := make([]Range, 0, numChunks)
	for i := 0; i < numChunks; i++ {
		start := float64(i) * chunkSeconds
		end := start + chunkSeconds
		if end > totalDuration {
			end = totalDuration
		}
		ranges = append(ranges, Range{Index: i, Start: start, End: end})
	}
	return ranges
}

// Extractor carves one time range of a source file into a standalone
// audio file.
type Extractor interface {
	ExtractRange(ctx context.Context, src string, startSec, durationSec float64) (string, error)
}

// Splitter plans ranges and extracts their audio.
type Splitter struct {
	extractor Extractor
	log       *logger.Logger
}

// New creates a Splitter.
func New(extractor Extractor, log *logger.Logger) *Splitter {
	return &Splitter{extractor: extractor, log: log.WithComponent("splitter")}
}

// Split plans the ranges for a source and returns them. sizeBytes picks
// the chunk-duration tier; totalDuration may be the probed value or the
// fallback.
func (s *Splitter) Split(totalDuration float64, sizeBytes int64) []Range {
	chunkSeconds := TargetChunkSeconds(sizeBytes)
	ranges := Plan(totalDuration, chunkSeconds)
	s.log.Debug("planned chunks", map[string]interface{}{
		"total_duration": totalDuration,
		"chunk_seconds":  chunkSeconds,
		"chunks":         len(ranges),
	})
	return ranges
}

// Extract carves the audio for one planned range. Failure of one range
// is that range's failure only; siblings proceed independently.
func (s *Splitter) Extract(ctx context.Context, src string, r Range) (string, error) {
	return s.extractor.ExtractRange(ctx, src, r.Start, r.Duration())
}
