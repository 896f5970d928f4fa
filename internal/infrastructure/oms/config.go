package oms

import (
	"errors"
	"time"
)

// Config holds connection settings for the order management system API.
type Config struct {
	BaseURL    string
	Username   string
	Password   string
	Timeout    time.Duration
	MaxRetries int
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("oms: base URL is required")
	}
	if c.Username == "" || c.Password == "" {
		return errors.New("oms: username and password are required")
	}
	if c.MaxRetries < 0 {
		return errors.New("oms: max retries cannot be negative")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}
