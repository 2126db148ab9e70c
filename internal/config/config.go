package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all hostmetrics configuration.
type Config struct {
	// Directory holding the MultiQC module YAML files.
	DataDir string `yaml:"multiqc_data_dir"`

	// Single-end reads select the unpaired_* tags and the SE header.
	SingleEnd bool `yaml:"single_end"`

	// Output TSV path.
	Output string `yaml:"output"`

	// Also render the table to stdout.
	Summary bool `yaml:"summary"`

	// Field extraction tables
	Report ReportConfig `yaml:"report"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir: DefaultDataDir,
		Output:  DefaultOutput,
		Report: ReportConfig{
			Kept:      LabelNotMapped,
			Discarded: []string{LabelMappedOne, LabelMappedMulti},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

const (
	DefaultDataDir = "multiqc_data"
	DefaultOutput  = "host_removal_metrics.tsv"
)

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
// Unparseable booleans are ignored.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("HOSTMETRICS_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if out := os.Getenv("HOSTMETRICS_OUTPUT"); out != "" {
		c.Output = out
	}
	if v := os.Getenv("HOSTMETRICS_SINGLE_END"); v != "" {
		if se, err := strconv.ParseBool(v); err == nil {
			c.SingleEnd = se
		}
	}
	if level := os.Getenv("HOSTMETRICS_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Files returns the extraction table for the active mode: the configured
// files, or the built-in bowtie2 table when none are configured.
func (c *Config) Files() []FileFields {
	if len(c.Report.Files) > 0 {
		return c.Report.Files
	}
	return Bowtie2Fields(c.SingleEnd)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("multiqc data directory not configured")
	}
	if c.Output == "" {
		return fmt.Errorf("output path not configured")
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return c.Report.validate(c.Files())
}
