package config

import (
	"fmt"
	"strings"
)

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// ValidLevels lists the accepted log levels.
var ValidLevels = []string{"debug", "info", "warn", "warning", "error"}

// ValidFormats lists the accepted log encodings.
var ValidFormats = []string{"console", "json"}

// Validate checks level and format.
func (c *LoggingConfig) Validate() error {
	if c.Level != "" && !contains(ValidLevels, strings.ToLower(c.Level)) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Level, ValidLevels)
	}
	if c.Format != "" && !contains(ValidFormats, strings.ToLower(c.Format)) {
		return fmt.Errorf("invalid log format: %s (valid: %v)", c.Format, ValidFormats)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
