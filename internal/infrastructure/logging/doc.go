// Package logging provides structured logging for API Studio Core.
//
// It wraps log/slog so every component logs through one configured handler:
// JSON in production, text for development, with service and version fields
// on every entry.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log passwords, password hashes or bearer tokens. Session ids may be
// logged; they are useless without a signed token that references them.
package logging
