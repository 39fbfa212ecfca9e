// Package preflight checks that the filesystem locations a configuration
// points at are usable before an extraction starts.
//
// The input directory must exist and be readable. Output and log directories
// must be writable, or creatable under a writable ancestor. "cepstra config
// validate" prints every result and fails when any check does not pass.
package preflight
