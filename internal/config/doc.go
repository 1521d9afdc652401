// Package config loads Flow server configuration from a JSON or YAML file
// and overlays FLOW_* environment variables. Durations accept Go duration
// strings ("30s", "5m") or bare millisecond numbers.
package config
