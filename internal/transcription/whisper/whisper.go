// Package whisper implements the transcription provider against an
// OpenAI-compatible audio transcription endpoint.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/clipscribe/clipscribe/internal/apperrors"
	"github.com/clipscribe/clipscribe/internal/caption"
	"github.com/clipscribe/clipscribe/internal/transcription"
)

// ProviderName is the registered name of this provider.
const ProviderName = "whisper"

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "whisper-1"
	defaultTimeout = 5 * time.Minute

	// defaultPrompt biases decoding toward informal speech so slang and
	// filler words survive instead of being "corrected" away.
	defaultPrompt = "Casual conversational speech with slang, filler words like um and uh, and informal phrasing."
)

// Config holds settings for the whisper provider.
type Config struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Prompt  string        `yaml:"prompt" mapstructure:"prompt"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.Prompt == "" {
		c.Prompt = defaultPrompt
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("whisper.api_key is required")
	}
	return nil
}

// Provider calls the transcription endpoint with word-level timestamps.
type Provider struct {
	cfg    Config
	client *http.Client
}

// NewProvider creates a whisper provider.
func NewProvider(cfg Config) (*Provider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether the endpoint answers at all.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// Transcribe uploads the audio file and returns its word-timestamped
// transcript. Timeouts, auth failures, and rate limits surface as
// distinct error kinds so callers can message them differently.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	audio, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, apperrors.MediaProcessing("open audio", err)
	}
	defer audio.Close()

	profile := transcription.ProfileFor(req.Quality)
	prompt := p.cfg.Prompt
	if req.Prompt != "" {
		prompt = req.Prompt
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(req.AudioPath))
	if err != nil {
		return nil, apperrors.Internal("build upload form", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, apperrors.Internal("copy audio into form", err)
	}

	_ = writer.WriteField("model", p.cfg.Model)
	_ = writer.WriteField("response_format", "verbose_json")
	_ = writer.WriteField("timestamp_granularities[]", "word")
	_ = writer.WriteField("temperature", "0.0")
	_ = writer.WriteField("prompt", prompt)
	_ = writer.WriteField("chunk_length", strconv.FormatFloat(profile.WindowSeconds, 'f', -1, 64))
	_ = writer.WriteField("overlap", strconv.FormatFloat(profile.OverlapSeconds, 'f', -1, 64))
	if req.Language != "" {
		_ = writer.WriteField("language", req.Language)
	}
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return nil, apperrors.Internal("build transcription request", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, apperrors.AdapterTimeout("transcription")
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.AdapterProcessing(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, p.mapStatusError(resp)
	}

	var decoded verboseResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, apperrors.AdapterProcessing(fmt.Errorf("decode response: %w", err))
	}
	return decoded.toResponse(), nil
}

func (p *Provider) mapStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.AdapterAuth()
	case http.StatusTooManyRequests:
		return apperrors.AdapterRateLimit()
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return apperrors.AdapterTimeout("transcription")
	default:
		return apperrors.AdapterProcessing(fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// verboseResponse mirrors the verbose_json transcription payload.
type verboseResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Words    []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

func (r *verboseResponse) toResponse() *transcription.Response {
	words := make([]caption.Word, len(r.Words))
	for i, w := range r.Words {
		words[i] = caption.Word{Text: w.Word, Start: w.Start, End: w.End}
	}
	duration := r.Duration
	if duration == 0 && len(words) > 0 {
		duration = words[len(words)-1].End
	}
	return &transcription.Response{
		Text:     r.Text,
		Words:    words,
		Duration: duration,
		Language: r.Language,
	}
}
