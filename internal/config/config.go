package config

import (
	"fmt"

	"github.com/clipscribe/clipscribe/internal/auth"
	"github.com/clipscribe/clipscribe/internal/billing"
	"github.com/clipscribe/clipscribe/internal/database"
	"github.com/clipscribe/clipscribe/internal/events"
	"github.com/clipscribe/clipscribe/internal/llm"
	"github.com/clipscribe/clipscribe/internal/logger"
	"github.com/clipscribe/clipscribe/internal/media"
	"github.com/clipscribe/clipscribe/internal/observability"
	"github.com/clipscribe/clipscribe/internal/pipeline"
	"github.com/clipscribe/clipscribe/internal/redis"
	"github.com/clipscribe/clipscribe/internal/server"
	"github.com/clipscribe/clipscribe/internal/storage"
	"github.com/clipscribe/clipscribe/internal/transcription/whisper"
)

// Config is the full application configuration. Each section is owned
// by its package; this struct only aggregates them for loading.
type Config struct {
	AppName string `yaml:"app_name" mapstructure:"app_name"`

	Logger        logger.Config        `yaml:"logger" mapstructure:"logger"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Database      database.Config      `yaml:"database" mapstructure:"database"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Auth          auth.Config          `yaml:"auth" mapstructure:"auth"`
	Media         media.Config         `yaml:"media" mapstructure:"media"`
	Whisper       whisper.Config       `yaml:"whisper" mapstructure:"whisper"`
	LLM           llm.Config           `yaml:"llm" mapstructure:"llm"`
	Billing       billing.Config       `yaml:"billing" mapstructure:"billing"`
	Events        events.Config        `yaml:"events" mapstructure:"events"`
	Storage       storage.Config       `yaml:"storage" mapstructure:"storage"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	Pipeline      pipeline.Config      `yaml:"pipeline" mapstructure:"pipeline"`
}

// ApplyDefaults fills every section's zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.AppName == "" {
		c.AppName = "clipscribe"
	}
	c.Logger.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.Media.ApplyDefaults()
	c.Whisper.ApplyDefaults()
	c.LLM.ApplyDefaults()
	c.Billing.ApplyDefaults()
	c.Events.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Observability.ApplyDefaults()
	c.Pipeline.ApplyDefaults()
}

// Validate checks every section. The first failure is returned with its
// section named.
func (c *Config) Validate() error {
	checks := []struct {
		name string
		err  error
	}{
		{"logger", c.Logger.Validate()},
		{"server", c.Server.Validate()},
		{"database", c.Database.Validate()},
		{"redis", c.Redis.Validate()},
		{"auth", c.Auth.Validate()},
		{"media", c.Media.Validate()},
		{"whisper", c.Whisper.Validate()},
		{"llm", c.LLM.Validate()},
		{"billing", c.Billing.Validate()},
		{"events", c.Events.Validate()},
		{"storage", c.Storage.Validate()},
	}
	for _, check := range checks {
		if check.err != nil {
			return fmt.Errorf("config section %s: %w", check.name, check.err)
		}
	}
	return nil
}
