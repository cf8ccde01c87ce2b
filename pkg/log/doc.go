// Package log provides structured protocol logging for the LwM2M client.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events: CoAP exchanges with the management server,
// registration state changes and errors. It is separate from operational
// logging (slog). Protocol capture provides a complete machine-readable
// trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/lwm2m/client.llog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
//   - Exchange: one CoAP request/response pair (ExchangeEvent)
//   - State: registration lifecycle transitions (StateChangeEvent)
//   - Error: failures at any layer (ErrorEventData)
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with integer keys. The
// lwm2m-log CLI tool prints and filters them.
package log
