// Package config loads bridge configuration from the environment.
// Credentials are deliberately absent: the Discord token and client id
// arrive over the protocol's credentials operation, never from config.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the process-level settings for the bridge.
type Config struct {
	// Host and Port are where the protocol server listens. Workflow
	// processes on the same machine connect here.
	Host string `env:"BRIDGE_HOST" envDefault:"127.0.0.1"`
	Port int    `env:"BRIDGE_PORT" envDefault:"9134"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"BRIDGE_LOG_LEVEL" envDefault:"info"`
}

// Load parses configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	return cfg, nil
}

// Addr returns the listen address for the protocol server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
