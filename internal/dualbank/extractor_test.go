package dualbank_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"cepstra/internal/audio"
	"cepstra/internal/dualbank"
	"cepstra/internal/featstore"
	"cepstra/internal/features"
	"cepstra/internal/keymap"
	"cepstra/internal/services"
	"cepstra/internal/testsupport"
)

func newFixture(t *testing.T, ids ...string) (string, dualbank.Patterns) {
	t.Helper()
	dir := t.TempDir()
	for _, id := range ids {
		testsupport.WriteWAV(t, filepath.Join(dir, "audio", id+".wav"), testsupport.DefaultTone())
	}
	return dir, dualbank.Patterns{
		Input:  features.Pattern(filepath.Join(dir, "audio", "{}.wav")),
		Linear: features.Pattern(filepath.Join(dir, "lin", "{}.sqlite")),
		Mel:    features.Pattern(filepath.Join(dir, "mel", "{}.sqlite")),
	}
}

func newExtractor(t *testing.T, patterns dualbank.Patterns, settings features.Settings, opts ...dualbank.Option) *dualbank.Extractor {
	t.Helper()
	ex, err := dualbank.New(patterns, settings, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ex
}

func recordKeys(rec dualbank.Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func TestExtractTwoIdentifiers(t *testing.T) {
	_, patterns := newFixture(t, "a", "b")
	ex := newExtractor(t, patterns, features.DefaultSettings())

	set, err := ex.Extract(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ids := set.IDs(); !slices.Equal(ids, []string{"a", "b"}) {
		t.Fatalf("identifiers = %v", ids)
	}
	for _, id := range set.IDs() {
		rec := set[id]
		if got, want := recordKeys(rec), keymap.Canonical(); !slices.Equal(got, want) {
			t.Fatalf("%s keys = %v, want %v", id, got, want)
		}
		if n := len(rec); n != 26 {
			t.Fatalf("%s has %d fields, want 26", id, n)
		}
		mfcc := rec["MFCC"]
		if mfcc.DType != featstore.Uint8 || !slices.Equal(mfcc.Shape, []int{98, 20}) {
			t.Fatalf("MFCC = %s, want uint8[98 20]", mfcc)
		}
		lfcc := rec["LFCC"]
		if !slices.Equal(lfcc.Shape, []int{98, 20}) {
			t.Fatalf("LFCC = %s", lfcc)
		}
		if got := rec["vad"].Len(); got != 98 {
			t.Fatalf("vad length = %d, want 98", got)
		}
		if !slices.Equal(rec["lin_fb"].Shape, []int{98, 24}) || !slices.Equal(rec["log_fb"].Shape, []int{98, 24}) {
			t.Fatalf("unexpected filter bank shapes lin=%s log=%s", rec["lin_fb"], rec["log_fb"])
		}
	}
	if len(ex.Features()) != 2 {
		t.Fatalf("Features() should hold the last set")
	}
}

func TestExtractTrimmedFrames(t *testing.T) {
	_, patterns := newFixture(t, "a")
	settings := features.DefaultSettings()
	settings.KeepAllFeatures = false
	ex := newExtractor(t, patterns, settings)

	set, err := ex.Extract(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	rec := set["a"]
	voiced := 0
	for _, v := range rec["vad"].Data {
		if v != 0 {
			voiced++
		}
	}
	if voiced == 0 || voiced >= 98 {
		t.Fatalf("unexpected voiced count %d", voiced)
	}
	for _, name := range []string{"MFCC", "LFCC", "log_fb", "lin_fb"} {
		if rows := rec[name].Rows(); rows != voiced {
			t.Fatalf("%s rows = %d, want %d", name, rows, voiced)
		}
	}
	if rec["vad"].Len() != 98 {
		t.Fatalf("vad should cover all 98 frames")
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	_, patterns := newFixture(t, "a")
	ex := newExtractor(t, patterns, features.DefaultSettings())
	ctx := context.Background()

	first, err := ex.Extract(ctx, []string{"a"})
	if err != nil {
		t.Fatalf("first Extract: %v", err)
	}
	second, err := ex.Extract(ctx, []string{"a"})
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	for name, arr := range first["a"] {
		if !arr.Equal(second["a"][name]) {
			t.Fatalf("field %s differs between runs", name)
		}
	}
}

func TestLogOverwritesLinearOnSharedNames(t *testing.T) {
	_, patterns := newFixture(t, "a")
	// The linear pipeline decodes first; doubling its signal gives it a
	// different frame energy than the log pipeline sees.
	calls := 0
	loader := func(path string, channel int) (audio.Signal, error) {
		sig, err := audio.Load(path, channel)
		if err != nil {
			return sig, err
		}
		calls++
		if calls == 1 {
			for i := range sig.Samples {
				sig.Samples[i] *= 2
			}
		}
		return sig, nil
	}
	ex := newExtractor(t, patterns, features.DefaultSettings(),
		dualbank.WithSaveParams(features.FilterBankLinear, features.SaveEnergy, features.SaveCep),
		dualbank.WithStoreOptions(featstore.Options{Precision: featstore.Float64}),
		dualbank.WithPipelineOptions(features.WithLoader(loader)),
	)
	ctx := context.Background()
	set, err := ex.Extract(ctx, []string{"a"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if calls != 2 {
		t.Fatalf("loader called %d times, want 2", calls)
	}

	melStore := testsupport.MustOpenStore(t, patterns.Mel.Resolve("a"))
	logMean, err := melStore.Read(ctx, "a", "energy_mean")
	if err != nil {
		t.Fatalf("Read log: %v", err)
	}
	linStore := testsupport.MustOpenStore(t, patterns.Linear.Resolve("a"))
	linMean, err := linStore.Read(ctx, "a", "energy_mean")
	if err != nil {
		t.Fatalf("Read lin: %v", err)
	}
	if linMean.Equal(logMean) {
		t.Fatalf("linear and log energy_mean should differ, both %v", linMean.Data)
	}
	merged := set["a"]["energy_mean"]
	if !merged.Equal(logMean) {
		t.Fatalf("energy_mean = %v, want log value %v (linear %v)", merged.Data, logMean.Data, linMean.Data)
	}
}

func TestExtractIdentifiersWithURIMetacharacters(t *testing.T) {
	ids := []string{"spk#1", "take%20two", "what?"}
	_, patterns := newFixture(t, ids...)
	ex := newExtractor(t, patterns, features.DefaultSettings())

	set, err := ex.Extract(context.Background(), ids)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, id := range ids {
		if got := len(set[id]); got != 26 {
			t.Fatalf("%q has %d fields, want 26", id, got)
		}
	}
}

func TestExtractMissingInput(t *testing.T) {
	_, patterns := newFixture(t, "a")
	ex := newExtractor(t, patterns, features.DefaultSettings())
	ctx := context.Background()

	if _, err := ex.Extract(ctx, []string{"a"}); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	set, err := ex.Extract(ctx, []string{"missing_id"})
	if !errors.Is(err, services.ErrInputNotFound) {
		t.Fatalf("expected ErrInputNotFound, got %v", err)
	}
	if set != nil {
		t.Fatalf("failed extraction returned %v", set)
	}
	if _, ok := ex.Features()["a"]; !ok {
		t.Fatal("failed extraction should keep the previous set")
	}
}

func TestExtractSourcesChannel(t *testing.T) {
	dir := t.TempDir()
	tone := testsupport.DefaultTone()
	tone.Channels = 2
	testsupport.WriteWAV(t, filepath.Join(dir, "s.wav"), tone)
	patterns := dualbank.Patterns{
		Input:  features.Pattern(filepath.Join(dir, "{}.wav")),
		Linear: features.Pattern(filepath.Join(dir, "lin.sqlite")),
		Mel:    features.Pattern(filepath.Join(dir, "mel.sqlite")),
	}
	ex := newExtractor(t, patterns, features.DefaultSettings())

	set, err := ex.ExtractSources(context.Background(), []features.Source{{ID: "s", Channel: 1}})
	if err != nil {
		t.Fatalf("ExtractSources: %v", err)
	}
	for _, v := range set["s"]["vad"].Data {
		if v != 0 {
			t.Fatal("silent right channel should have no voiced frames")
		}
	}
}

func TestNewRejectsBadConfiguration(t *testing.T) {
	_, patterns := newFixture(t)
	bad := features.DefaultSettings()
	bad.CepsNumber = 30
	if _, err := dualbank.New(patterns, bad); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for settings, got %v", err)
	}

	same := patterns
	same.Mel = same.Linear
	if _, err := dualbank.New(same, features.DefaultSettings()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for shared output, got %v", err)
	}

	empty := patterns
	empty.Input = ""
	if _, err := dualbank.New(empty, features.DefaultSettings()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for empty input, got %v", err)
	}
}

func TestPipelineParameters(t *testing.T) {
	_, patterns := newFixture(t)
	ex := newExtractor(t, patterns, features.DefaultSettings())

	lin, mel := ex.Linear(), ex.Mel()
	if lin.Kind != features.FilterBankLinear || lin.HigherFrequency != 8000 {
		t.Fatalf("linear params = %s up to %g", lin.Kind, lin.HigherFrequency)
	}
	if !slices.Equal(lin.Save, []features.SaveParam{features.SaveCep, features.SaveFB}) {
		t.Fatalf("linear saves %v", lin.Save)
	}
	if mel.Kind != features.FilterBankLog || mel.HigherFrequency != 3800 {
		t.Fatalf("mel params = %s up to %g", mel.Kind, mel.HigherFrequency)
	}
	if !slices.Equal(mel.Save, []features.SaveParam{features.SaveVAD, features.SaveEnergy, features.SaveCep, features.SaveFB}) {
		t.Fatalf("mel saves %v", mel.Save)
	}
	if lin.Output != patterns.Linear || mel.Output != patterns.Mel {
		t.Fatal("output patterns not wired to pipelines")
	}
}
