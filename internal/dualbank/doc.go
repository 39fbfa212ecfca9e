// Package dualbank runs a linear and a log filter bank pipeline over the same
// identifiers and returns one merged, canonically named record per
// identifier.
//
// A call runs the linear pipeline to completion, then the log pipeline, then
// reads both stores back. Read-back renames every field through the keymap
// table and merges with log values overwriting linear ones, so shared names
// such as energy and vad always come from the log pipeline.
package dualbank
