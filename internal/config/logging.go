package config

import (
	"fmt"

	"bioclas/internal/logging"
)

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level" toml:"level"`                               // debug, info, warn, error
	Format     string          `yaml:"format" toml:"format"`                             // json, console
	File       string          `yaml:"file,omitempty" toml:"file,omitempty"`             // empty = stderr
	DebugMode  bool            `yaml:"debug_mode" toml:"debug_mode"`                     // debug level, all categories on by default
	Categories map[string]bool `yaml:"categories,omitempty" toml:"categories,omitempty"` // Per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Explicit toggles win; unlisted categories follow debug_mode.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	enabled, exists := c.Categories[category]
	if !exists {
		return c.DebugMode
	}
	return enabled
}

// Validate checks level and format names.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", c.Level)
	}
	switch c.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid logging.format %q (valid: json, console)", c.Format)
	}
	return nil
}

// ToLogging converts to the logging package's config.
func (c LoggingConfig) ToLogging() logging.Config {
	return logging.Config{
		Level:      c.Level,
		Format:     c.Format,
		DebugMode:  c.DebugMode,
		Categories: c.Categories,
		OutputPath: c.File,
	}
}
