// Package serverrun boots a Flow server instance: runtime, HTTP transport,
// the optional stale-claim reaper, and live log-level reload from the config
// file.
package serverrun
