package billing

import (
	"fmt"
	"time"
)

// Config holds Razorpay credentials and endpoint settings.
type Config struct {
	KeyID     string `yaml:"key_id" mapstructure:"key_id"`
	KeySecret string `yaml:"key_secret" mapstructure:"key_secret"`

	// BaseURL points at the Razorpay REST API. Overridable for tests.
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.razorpay.com/v1"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.KeyID == "" {
		return fmt.Errorf("billing.key_id is required")
	}
	if c.KeySecret == "" {
		return fmt.Errorf("billing.key_secret is required")
	}
	return nil
}
