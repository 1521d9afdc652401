// Package flowsvc is the service facade over the Flow engine. It resolves
// project names, applies list filters, and is the single entry point the
// transport layer calls.
package flowsvc
