// Package logging builds the slog loggers used by the extractor and CLI.
//
// It owns the console and JSON handlers, level parsing, output routing, and
// the context helpers that tag every line of one extraction with its run id,
// identifier, and pipeline. NewNop gives tests and wiring code a logger that
// never fails.
package logging
