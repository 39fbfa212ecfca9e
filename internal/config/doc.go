// Package config loads, normalizes, and validates cepstra configuration.
//
// It supplies defaults for every feature extraction setting, expands user
// paths (including tilde shortcuts) in the filename patterns, and reads TOML
// files. Settings, Patterns, and StoreOptions adapt the result for the
// extractor so callers never build those values by hand.
package config
