package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// DefaultProjectName is used when callers omit a project.
	DefaultProjectName string `json:"defaultProjectName" yaml:"defaultProjectName"`
	// ProjectNameRegex constrains project names at ensure time.
	ProjectNameRegex string `json:"projectNameRegex" yaml:"projectNameRegex"`
	// QueueDefaults captures per-queue baseline settings.
	QueueDefaults QueueDefaults `json:"queueDefaults" yaml:"queueDefaults"`
	// Reaper controls the stale-claim scanner. Disabled unless Enabled is set.
	Reaper ReaperConfig `json:"reaper" yaml:"reaper"`
	// Log selects level and format before flags/env are applied.
	Log LogConfig `json:"log" yaml:"log"`
}

// QueueDefaults holds defaults applied at queue creation when the caller
// leaves fields unset.
type QueueDefaults struct {
	MaxConcurrency int `json:"maxConcurrency" yaml:"maxConcurrency"`
	// RetryMaxAttempts of 0 means no retry policy by default.
	RetryMaxAttempts int           `json:"retryMaxAttempts" yaml:"retryMaxAttempts"`
	RetryBackoff     Duration `json:"retryBackoff" yaml:"retryBackoff"`
}

// ReaperConfig controls reclamation of claims stuck InProgress.
type ReaperConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Interval between scans.
	Interval Duration `json:"interval" yaml:"interval"`
	// EstimateFactor multiplies a membership's estimated processing time to
	// obtain its deadline.
	EstimateFactor float64 `json:"estimateFactor" yaml:"estimateFactor"`
	// MinAge is the deadline floor for items without an estimate.
	MinAge Duration `json:"minAge" yaml:"minAge"`
	// MaxPerSweep bounds work done in one scan.
	MaxPerSweep int `json:"maxPerSweep" yaml:"maxPerSweep"`
}

// LogConfig mirrors pkg/log.Config for file-based configuration.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		DefaultProjectName: "default",
		ProjectNameRegex:   "[a-z0-9-_]{1,64}",
		QueueDefaults: QueueDefaults{
			MaxConcurrency:   1,
			RetryMaxAttempts: 0,
			RetryBackoff:     Duration(30 * time.Second),
		},
		Reaper: ReaperConfig{
			Enabled:        false,
			Interval:       Duration(30 * time.Second),
			EstimateFactor: 3,
			MinAge:         Duration(10 * time.Minute),
			MaxPerSweep:    256,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}
