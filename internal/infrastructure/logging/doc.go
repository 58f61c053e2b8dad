// Package logging provides structured logging for the hub core.
//
// This package wraps Go's standard log/slog package so every component
// logs the same way:
//
//   - JSON output for production, text output for development
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Component("router").Info("router started", "queue", 256)
//
// Never log broker passwords or device secrets.
package logging
