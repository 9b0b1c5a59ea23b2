package auth

import (
	"fmt"
	"time"
)

// Config configures token signing and password hashing.
type Config struct {
	// Secret is the HMAC signing key for session tokens.
	Secret string `yaml:"secret" mapstructure:"secret"`

	// TokenTTL is the session token lifetime.
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`

	// Issuer is the "iss" claim stamped on issued tokens.
	Issuer string `yaml:"issuer" mapstructure:"issuer"`

	// BcryptCost tunes password hashing work factor.
	BcryptCost int `yaml:"bcrypt_cost" mapstructure:"bcrypt_cost"`
}

// ApplyDefaults fills zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.TokenTTL == 0 {
		c.TokenTTL = 7 * 24 * time.Hour
	}
	if c.Issuer == "" {
		c.Issuer = "clipscribe"
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	if len(c.Secret) < 32 {
		return fmt.Errorf("auth.secret must be at least 32 bytes")
	}
	return nil
}
