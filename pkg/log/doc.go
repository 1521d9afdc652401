// Package log provides structured logging for Flow services.
//
// The package exposes a small Logger interface backed by log/slog. Services
// receive a Logger via dependency injection and tag it with a component name:
//
//	logger := log.NewLogger(log.WithLevel(log.InfoLevel))
//	svc := flowsvc.NewWithLogger(rt, logger.With(log.Component("flow")))
//
// Output format (text or JSON) and minimum level are configured once at
// process start, typically through ApplyConfig from FLOW_LOG_LEVEL and
// FLOW_LOG_FORMAT.
package log
