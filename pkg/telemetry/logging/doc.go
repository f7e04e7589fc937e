// Package logging provides structured logging with payload sanitization.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging in JSON or text format
//   - Sanitization of messages and string attributes (passwords, tokens,
//     national ids, card numbers) using the audit sanitizer
//   - Context-aware logging with correlation, trace, request and user ids
//   - A log level that can be changed at runtime
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:    "info",
//	    Format:   "json",
//	    Sanitize: true,
//	})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger.Slog())
//
//	ctx = logging.WithCorrelationID(ctx, "c-123")
//	slog.InfoContext(ctx, "processing")  // includes correlation_id
//
// # Sanitization
//
// When Sanitize is enabled, log output never contains the raw values that
// the audit pipeline masks in stored records:
//
//	{"password":"hunter2"}           → {"password":"****"}
//	Authorization: Bearer abc        → Authorization: ****
//	4111111111111111                 → ****
package logging
