package keymap

import (
	"fmt"
	"maps"
	"slices"

	"cepstra/internal/services"
)

// Kind names a pipeline flavour in the table.
type Kind string

const (
	Linear Kind = "lin"
	Log    Kind = "log"
)

// Entry is one row of the rename table.
type Entry struct {
	Kind      Kind   `json:"kind"`
	Internal  string `json:"internal"`
	Canonical string `json:"canonical"`
}

var table = map[Kind]map[string]string{
	Log: {
		"cep":              "MFCC",
		"cep_header":       "log_cep_header",
		"cep_mean":         "log_cep_mean",
		"cep_min_range":    "log_cep_min_range",
		"cep_std":          "log_cep_std",
		"energy":           "energy",
		"energy_header":    "energy_header",
		"energy_mean":      "energy_mean",
		"energy_min_range": "energy_min_range",
		"energy_std":       "energy_std",
		"fb":               "log_fb",
		"fb_header":        "log_fb_header",
		"fb_mean":          "log_fb_mean",
		"fb_min_range":     "log_fb_min_range",
		"fb_std":           "log_fb_std",
		"vad":              "vad",
	},
	Linear: {
		"cep":              "LFCC",
		"cep_header":       "lin_cep_header",
		"cep_mean":         "lin_cep_mean",
		"cep_min_range":    "lin_cep_min_range",
		"cep_std":          "lin_cep_std",
		"energy":           "energy",
		"energy_header":    "energy_header",
		"energy_mean":      "energy_mean",
		"energy_min_range": "energy_min_range",
		"energy_std":       "energy_std",
		"fb":               "lin_fb",
		"fb_header":        "lin_fb_header",
		"fb_mean":          "lin_fb_mean",
		"fb_min_range":     "lin_fb_min_range",
		"fb_std":           "lin_fb_std",
		"vad":              "vad",
	},
}

// Kinds returns the kinds known to the table.
func Kinds() []Kind {
	return []Kind{Linear, Log}
}

// Lookup returns the canonical name for key under kind.
func Lookup(kind Kind, key string) (string, error) {
	fields, ok := table[kind]
	if !ok {
		return "", services.Wrap(services.ErrSchemaMismatch, "keymap", "lookup", fmt.Sprintf("unknown kind %q", kind), nil)
	}
	name, ok := fields[key]
	if !ok {
		return "", services.Wrap(services.ErrSchemaMismatch, "keymap", "lookup", fmt.Sprintf("no mapping for %s field %q", kind, key), nil)
	}
	return name, nil
}

// Fields returns the internal field names mapped for kind, sorted.
func Fields(kind Kind) []string {
	return slices.Sorted(maps.Keys(table[kind]))
}

// Entries returns the full table ordered by kind then internal name.
func Entries() []Entry {
	var out []Entry
	for _, kind := range Kinds() {
		for _, key := range Fields(kind) {
			out = append(out, Entry{Kind: kind, Internal: key, Canonical: table[kind][key]})
		}
	}
	return out
}

// Canonical returns every canonical name the table can produce, sorted.
func Canonical() []string {
	seen := make(map[string]struct{})
	for _, fields := range table {
		for _, name := range fields {
			seen[name] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Rename returns a copy of raw with every key replaced by its canonical name.
// The first unmapped key fails the whole rename.
func Rename[M ~map[string]V, V any](kind Kind, raw M) (M, error) {
	out := make(M, len(raw))
	for _, key := range slices.Sorted(maps.Keys(raw)) {
		name, err := Lookup(kind, key)
		if err != nil {
			return nil, err
		}
		out[name] = raw[key]
	}
	return out, nil
}

// Merge combines renamed linear and log records. Values from log win on
// shared names.
func Merge[M ~map[string]V, V any](lin, log M) M {
	out := make(M, len(lin)+len(log))
	maps.Copy(out, lin)
	maps.Copy(out, log)
	return out
}
