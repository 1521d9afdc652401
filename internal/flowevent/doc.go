// Package flowevent is an append-only, per-project log of scheduling
// side effects: claims, completions, failures, forced interrupts, reaps.
//
// Engine mutations append their events into the same storage batch as the
// mutation itself, so an event exists exactly when the operation committed.
// The log is bounded by Trim, not by time.
package flowevent
