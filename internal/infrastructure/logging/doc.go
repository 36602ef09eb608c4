// Package logging provides structured logging for RelayDesk Core.
//
// This package wraps github.com/rs/zerolog behind a key/value API so every
// component logs the same way:
//
//	logger.Info("device connected", "device_id", id, "battery", 87)
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Console output for development (format: text)
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
// # Security
//
// Never log Feishu app secrets or broker passwords. Device message bodies
// are logged only at debug level.
package logging
