// Package audio decodes input recordings into a single channel of float64
// samples in [-1, 1].
//
// WAV files are decoded with faiface/beep and FLAC files with mewkiz/flac.
// Callers pick the channel explicitly; a missing file is reported with
// services.ErrInputNotFound so the extraction layer can name the identifier.
package audio
