// Package featstore persists computed feature arrays in SQLite files.
//
// A store is hierarchical: records are keyed first by file identifier (the
// "show") and then by field name, and every field is an N-dimensional numeric
// Array. Writers take an advisory lock next to the database so two extraction
// runs cannot interleave writes into the same file; readers open read-only and
// may run alongside each other.
//
// Key types:
//   - Array: dtype, row-major shape, and float64 values
//   - Store: Create (writable, locked) or Open (read-only) handle
package featstore
