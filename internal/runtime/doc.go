// Package runtime wires storage, configuration, and the Flow engine into a
// single-node instance that servers and the CLI build on.
package runtime
