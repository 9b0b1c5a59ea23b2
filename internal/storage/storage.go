package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Providers selectable via Config.Provider.
const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

// ObjectInfo contains metadata about a stored artifact.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is the artifact storage contract. Keys are slash-separated,
// e.g. "projects/<id>/captions.srt".
type Store interface {
	// Upload writes data from reader under the given key.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// Download returns a reader for the artifact. The caller closes it.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the artifact. Missing artifacts are not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an artifact is stored under the key.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns metadata for all artifacts whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// SignedURLProvider is implemented by backends that can mint
// time-limited download links for private artifacts.
type SignedURLProvider interface {
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Config selects and configures the storage backend.
type Config struct {
	Provider string `yaml:"provider" mapstructure:"provider"`

	// Local backend.
	BasePath string `yaml:"base_path" mapstructure:"base_path"`

	// S3 backend.
	Bucket         string `yaml:"bucket" mapstructure:"bucket"`
	Region         string `yaml:"region" mapstructure:"region"`
	Endpoint       string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey      string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey      string `yaml:"secret_key" mapstructure:"secret_key"`
	ForcePathStyle bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderLocal
	}
	if c.BasePath == "" {
		c.BasePath = "./data/artifacts"
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
}

// Validate checks backend-specific required fields.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderLocal:
		if c.BasePath == "" {
			return fmt.Errorf("storage.base_path is required for local storage")
		}
	case ProviderS3:
		if c.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("storage.provider %q is not supported", c.Provider)
	}
	return nil
}

// New builds the store the config selects.
func New(ctx context.Context, cfg Config) (Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ProviderLocal:
		return NewLocal(cfg.BasePath)
	case ProviderS3:
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage.provider %q is not supported", cfg.Provider)
	}
}
