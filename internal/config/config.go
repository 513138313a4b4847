package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds everything a run needs. It can be loaded from a YAML job file
// and is then overridden by command-line flags.
type Config struct {
	Source         string   `yaml:"source"`
	Destinations   []string `yaml:"destinations"`
	Excludes       []string `yaml:"exclude"`
	Verify         bool     `yaml:"verify"`
	DryRun         bool     `yaml:"dryrun"`
	Report         string   `yaml:"report"`        // Local path or s3:// URI
	ReportFormat   string   `yaml:"report_format"` // csv or json
	ResultJSONFile string   `yaml:"result_json_file"`
	MetricsFile    string   `yaml:"metrics_file"`
	// HashConcurrency bounds the hashes running at once for one file.
	// 0 means one per replica.
	HashConcurrency int    `yaml:"hash_concurrency"`
	NoSync          bool   `yaml:"no_sync"`
	LogLevel        string `yaml:"log_level"`
	Quiet           bool   `yaml:"quiet"`
	Profile         string `yaml:"profile"`
	Region          string `yaml:"region"`
}

// Default returns the configuration used when no job file is given.
func Default() Config {
	return Config{
		Verify:       true,
		ReportFormat: "csv",
		LogLevel:     "info",
	}
}

// Load reads a YAML job file on top of the defaults. Unknown keys are errors.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks that the configuration describes a runnable job.
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("source path is required")
	}
	if len(c.Destinations) == 0 {
		return fmt.Errorf("at least one destination is required")
	}
	if c.HashConcurrency < 0 {
		return fmt.Errorf("hash concurrency must not be negative")
	}
	switch c.ReportFormat {
	case "", "csv", "json":
	default:
		return fmt.Errorf("unknown report format %q", c.ReportFormat)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.Report != "" && !c.Verify {
		return fmt.Errorf("a report requires verification")
	}
	return nil
}
