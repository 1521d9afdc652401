package config

import (
	"os"
	"strconv"
	"time"
)

// FromEnv overlays FLOW_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("FLOW_DEFAULT_PROJECT_NAME"); v != "" {
		cfg.DefaultProjectName = v
	}
	if v := os.Getenv("FLOW_PROJECT_NAME_REGEX"); v != "" {
		cfg.ProjectNameRegex = v
	}
	if v := os.Getenv("FLOW_QUEUE_DEFAULT_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			cfg.QueueDefaults.MaxConcurrency = n
		}
	}
	if v := os.Getenv("FLOW_QUEUE_DEFAULT_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.QueueDefaults.RetryMaxAttempts = n
		}
	}
	if v := os.Getenv("FLOW_QUEUE_DEFAULT_RETRY_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.QueueDefaults.RetryBackoff = Duration(d)
		}
	}
	if v := os.Getenv("FLOW_REAPER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Reaper.Enabled = b
		}
	}
	if v := os.Getenv("FLOW_REAPER_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Reaper.Interval = Duration(d)
		}
	}
	if v := os.Getenv("FLOW_REAPER_ESTIMATE_FACTOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Reaper.EstimateFactor = f
		}
	}
	if v := os.Getenv("FLOW_REAPER_MIN_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Reaper.MinAge = Duration(d)
		}
	}
	if v := os.Getenv("FLOW_REAPER_MAX_PER_SWEEP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Reaper.MaxPerSweep = n
		}
	}
	if v := os.Getenv("FLOW_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("FLOW_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
