package accounting

import (
	"errors"
	"time"
)

// Config holds connection settings for the accounting system API.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("accounting: base URL is required")
	}
	if c.Token == "" {
		return errors.New("accounting: API token is required")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}
