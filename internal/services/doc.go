// Package services defines shared utilities consumed by the extraction
// pipelines, the feature store, and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, file identifiers, and pipeline names
//     for logging.
//   - Structured error markers plus the Wrap helper so every failure carries
//     the stage, the operation, and the offending identifier or field.
//
// Use these helpers when wiring new extraction logic so error classification
// and observability stay uniform across packages.
package services
