// Package keymap renames pipeline-internal feature fields to the canonical
// schema and merges the linear and log records of one identifier.
//
// The table is fixed at build time. Every field a pipeline can persist has
// exactly one canonical name per filter bank kind; a field without an entry
// is a schema mismatch, never a silent drop.
package keymap
