package keymap_test

import (
	"errors"
	"slices"
	"testing"

	"cepstra/internal/keymap"
	"cepstra/internal/services"
)

var canonicalSchema = []string{
	"MFCC", "log_cep_header", "log_cep_mean", "log_cep_min_range", "log_cep_std",
	"energy", "energy_header", "energy_mean", "energy_min_range", "energy_std",
	"log_fb", "log_fb_header", "log_fb_mean", "log_fb_min_range", "log_fb_std",
	"vad",
	"LFCC", "lin_cep_header", "lin_cep_mean", "lin_cep_min_range", "lin_cep_std",
	"lin_fb", "lin_fb_header", "lin_fb_mean", "lin_fb_min_range", "lin_fb_std",
}

func TestLookup(t *testing.T) {
	cases := []struct {
		kind keymap.Kind
		key  string
		want string
	}{
		{keymap.Log, "cep", "MFCC"},
		{keymap.Linear, "cep", "LFCC"},
		{keymap.Log, "fb_min_range", "log_fb_min_range"},
		{keymap.Linear, "cep_std", "lin_cep_std"},
		{keymap.Linear, "energy", "energy"},
		{keymap.Log, "vad", "vad"},
	}
	for _, tc := range cases {
		got, err := keymap.Lookup(tc.kind, tc.key)
		if err != nil {
			t.Fatalf("Lookup(%s, %s): %v", tc.kind, tc.key, err)
		}
		if got != tc.want {
			t.Fatalf("Lookup(%s, %s) = %q, want %q", tc.kind, tc.key, got, tc.want)
		}
	}
}

func TestLookupMismatch(t *testing.T) {
	if _, err := keymap.Lookup(keymap.Log, "pitch"); !errors.Is(err, services.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if _, err := keymap.Lookup("bark", "cep"); !errors.Is(err, services.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch for unknown kind, got %v", err)
	}
}

func TestTableCoversCanonicalSchema(t *testing.T) {
	want := slices.Clone(canonicalSchema)
	slices.Sort(want)
	if got := keymap.Canonical(); !slices.Equal(got, want) {
		t.Fatalf("canonical names = %v, want %v", got, want)
	}
	for _, kind := range keymap.Kinds() {
		if n := len(keymap.Fields(kind)); n != 16 {
			t.Fatalf("%s maps %d fields, want 16", kind, n)
		}
	}
	if n := len(keymap.Entries()); n != 32 {
		t.Fatalf("expected 32 table rows, got %d", n)
	}
}

func TestRename(t *testing.T) {
	raw := map[string]int{"cep": 1, "fb_std": 2, "energy": 3}
	got, err := keymap.Rename(keymap.Linear, raw)
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	want := map[string]int{"LFCC": 1, "lin_fb_std": 2, "energy": 3}
	if len(got) != len(want) {
		t.Fatalf("Rename = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("Rename = %v, want %v", got, want)
		}
	}
	if _, ok := raw["LFCC"]; ok {
		t.Fatal("Rename must not mutate its input")
	}

	if _, err := keymap.Rename(keymap.Log, map[string]int{"cep": 1, "pitch": 2}); !errors.Is(err, services.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestMergeLogWins(t *testing.T) {
	lin := map[string]string{"LFCC": "lin", "energy": "lin", "vad": "lin"}
	log := map[string]string{"MFCC": "log", "energy": "log"}
	got := keymap.Merge(lin, log)
	want := map[string]string{"LFCC": "lin", "MFCC": "log", "energy": "log", "vad": "lin"}
	if len(got) != len(want) {
		t.Fatalf("Merge = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("Merge[%s] = %q, want %q", k, got[k], v)
		}
	}
	if lin["energy"] != "lin" {
		t.Fatal("Merge must not mutate its inputs")
	}
}
