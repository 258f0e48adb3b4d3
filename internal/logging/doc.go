// Package logging builds the slog loggers used across capsum.
//
// It supports a compact console format for interactive runs and JSON for
// machine consumption, mirrors output into the configured log directory,
// and exposes small Attr helpers so call sites stay terse.
package logging
