package dualbank

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"cepstra/internal/featstore"
	"cepstra/internal/features"
	"cepstra/internal/keymap"
	"cepstra/internal/services"
)

func writeStore(t *testing.T, path, id string, fields map[string]featstore.Array) {
	t.Helper()
	store, err := featstore.Create(path, featstore.Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer store.Close()
	if err := store.Write(context.Background(), id, fields); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestReadRenamedSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lin.sqlite")
	writeStore(t, path, "a", map[string]featstore.Array{
		"cep":   featstore.Vector(featstore.Float32, []float64{1}),
		"pitch": featstore.Vector(featstore.Float32, []float64{2}),
	})
	_, err := readRenamed(context.Background(), path, "a", keymap.Linear)
	if !errors.Is(err, services.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestReadRenamedMissingRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lin.sqlite")
	writeStore(t, path, "a", map[string]featstore.Array{
		"cep": featstore.Vector(featstore.Float32, []float64{1}),
	})
	_, err := readRenamed(context.Background(), path, "b", keymap.Linear)
	if !errors.Is(err, services.ErrMissingRecord) {
		t.Fatalf("expected ErrMissingRecord, got %v", err)
	}
}

func TestReadRenamedStorageFailure(t *testing.T) {
	dir := t.TempDir()
	_, err := readRenamed(context.Background(), filepath.Join(dir, "absent.sqlite"), "a", keymap.Log)
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestReadBackLogWins(t *testing.T) {
	dir := t.TempDir()
	patterns := Patterns{
		Input:  "unused/{}.wav",
		Linear: features.Pattern(filepath.Join(dir, "lin", "{}.sqlite")),
		Mel:    features.Pattern(filepath.Join(dir, "mel", "{}.sqlite")),
	}
	writeStore(t, patterns.Linear.Resolve("a"), "a", map[string]featstore.Array{
		"cep":    featstore.Vector(featstore.Float32, []float64{1}),
		"energy": featstore.Vector(featstore.Float32, []float64{10}),
	})
	writeStore(t, patterns.Mel.Resolve("a"), "a", map[string]featstore.Array{
		"cep":    featstore.Vector(featstore.Float32, []float64{2}),
		"energy": featstore.Vector(featstore.Float32, []float64{20}),
	})

	e := &Extractor{patterns: patterns}
	rec, err := e.readBack(context.Background(), "a")
	if err != nil {
		t.Fatalf("readBack: %v", err)
	}
	if len(rec) != 3 {
		t.Fatalf("expected LFCC, MFCC and energy, got %d fields", len(rec))
	}
	if rec["LFCC"].Data[0] != 1 || rec["MFCC"].Data[0] != 2 {
		t.Fatalf("unexpected cepstra lin=%v log=%v", rec["LFCC"].Data, rec["MFCC"].Data)
	}
	if rec["energy"].Data[0] != 20 {
		t.Fatalf("energy = %v, want log value 20", rec["energy"].Data)
	}
}
