package expo_service

import (
	"fmt"
	"net/url"
	"time"
)

// Config represents the configuration for the Expo token exchange
type Config struct {
	// Authentication
	AccessToken string `yaml:"access_token" json:"access_token"` // Expo Access Token (optional, required when push security is enabled)

	// HTTP client settings
	TokenURL string        `yaml:"token_url" json:"token_url"` // getExpoPushToken endpoint
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`     // Request timeout

	// Exchange settings
	AppID       string `yaml:"app_id" json:"app_id"`           // Bundle identifier / application id
	Development bool   `yaml:"development" json:"development"` // APNs sandbox tokens
	DeviceID    string `yaml:"device_id" json:"device_id"`     // Fallback installation id when the bridge reports none
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		TokenURL: TokenURL,
		Timeout:  DefaultTimeout,
	}
}

// ApplyDefaults applies default values to missing configuration fields
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	if c.TokenURL == "" {
		c.TokenURL = defaults.TokenURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.TokenURL)
	if err != nil {
		return fmt.Errorf("invalid token_url %q: %w", c.TokenURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid token_url %q: scheme must be http or https", c.TokenURL)
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1s, got %s", c.Timeout)
	}
	return nil
}
