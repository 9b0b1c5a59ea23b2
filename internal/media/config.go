package media

import (
	"fmt"
	"time"
)

// Config holds media tool and fetch settings.
type Config struct {
	// FFmpegPath is the ffmpeg binary. Resolved via PATH when bare.
	FFmpegPath string `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`

	// FFprobePath is the ffprobe binary.
	FFprobePath string `yaml:"ffprobe_path" mapstructure:"ffprobe_path"`

	// TempDir is where request-scoped audio files are written. Empty
	// means the system temp directory.
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`

	// FetchTimeout bounds remote source downloads.
	FetchTimeout time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`

	// MaxFetchBytes caps the size of a remote source download.
	MaxFetchBytes int64 `yaml:"max_fetch_bytes" mapstructure:"max_fetch_bytes"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.FFprobePath == "" {
		c.FFprobePath = "ffprobe"
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = 5 * time.Minute
	}
	if c.MaxFetchBytes == 0 {
		c.MaxFetchBytes = 2 << 30 // 2 GiB
	}
}

// Validate checks field consistency.
func (c *Config) Validate() error {
	if c.MaxFetchBytes < 0 {
		return fmt.Errorf("media.max_fetch_bytes must not be negative")
	}
	return nil
}
