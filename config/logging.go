package config

import (
	"fmt"
)

// LoggingConfig defines settings for structured log output.
type LoggingConfig struct {
	// Level is the minimum severity to emit: "debug", "info", "warn" or "error".
	Level string `json:"level"`
	// Pretty switches to human-readable console output.
	Pretty bool `json:"pretty"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level %s", c.Level)
	}
}
