package transcription

import (
	"context"

	"github.com/clipscribe/clipscribe/internal/caption"
)

// Request holds the parameters for one transcription call.
type Request struct {
	// AudioPath is the local audio file to transcribe.
	AudioPath string
	// Language is an optional language hint, e.g. "en".
	Language string
	// Quality selects the decoding profile: high, balanced, or fast.
	Quality string
	// Prompt overrides the provider's default decoding bias prompt.
	Prompt string
}

// Response is the provider's transcript for one audio file.
type Response struct {
	// Text is the full transcript.
	Text string
	// Words carries per-word timestamps in the audio file's local time.
	Words []caption.Word
	// Duration is the audio duration in seconds as reported by the
	// provider.
	Duration float64
	// Language is the detected or confirmed language.
	Language string
}

// Provider is a speech-to-text backend.
type Provider interface {
	// Name identifies the backend in logs and errors.
	Name() string
	// IsAvailable reports whether the backend is reachable.
	IsAvailable(ctx context.Context) bool
	// Transcribe sends one audio file and returns its transcript with
	// word timestamps.
	Transcribe(ctx context.Context, req Request) (*Response, error)
}
