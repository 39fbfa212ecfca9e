// Package features is the acoustic feature toolkit the extractor drives.
//
// A Pipeline is configured once from Params (shared Settings plus the filter
// bank kind, upper frequency bound, persisted fields, and filename patterns)
// and then run over a batch of Sources with SaveList. For every source it
// decodes one channel, computes SNR voice-activity labels, log energy, filter
// bank log energies, and cepstral coefficients, and writes the selected fields
// to the feature store resolved from the output Pattern.
//
// Field naming follows the classic speaker-verification toolkits: each saved
// parameter p is stored as p, p_mean, p_std and, under percentile compression,
// p_header and p_min_range. "vad" holds the per-frame labels.
package features
