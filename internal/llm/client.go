package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clipscribe/clipscribe/internal/apperrors"
)

// Config holds chat completion endpoint settings.
type Config struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	Model   string `yaml:"model" mapstructure:"model"`

	// EnhanceTimeout bounds a readability rewrite call.
	EnhanceTimeout time.Duration `yaml:"enhance_timeout" mapstructure:"enhance_timeout"`
	// TranslateTimeout bounds a translation call. Translations run
	// longer than rewrites and get a larger budget.
	TranslateTimeout time.Duration `yaml:"translate_timeout" mapstructure:"translate_timeout"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.EnhanceTimeout == 0 {
		c.EnhanceTimeout = time.Minute
	}
	if c.TranslateTimeout == 0 {
		c.TranslateTimeout = 2 * time.Minute
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	return nil
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Client is a minimal chat completion client.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a chat completion client.
func NewClient(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, http: &http.Client{}}, nil
}

// Complete runs one chat completion with the given timeout and returns
// the first choice's content.
func (c *Client) Complete(ctx context.Context, messages []Message, temperature float64, maxTokens int, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(completionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", apperrors.Internal("encode completion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Internal("build completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return "", apperrors.AdapterTimeout("text rewrite")
		}
		return "", apperrors.ExternalServiceError("chat completion", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "", apperrors.AdapterAuth()
		case http.StatusTooManyRequests:
			return "", apperrors.AdapterRateLimit()
		default:
			return "", apperrors.ExternalServiceError("chat completion",
				fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
		}
	}

	var decoded completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", apperrors.ExternalServiceError("chat completion", fmt.Errorf("decode response: %w", err))
	}
	if len(decoded.Choices) == 0 {
		return "", apperrors.ExternalServiceError("chat completion", fmt.Errorf("empty choices"))
	}
	return decoded.Choices[0].Message.Content, nil
}
