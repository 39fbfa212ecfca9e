package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"cepstra/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose patterns live in a per-test temp
// directory: audio/{}.wav for input, lin/{}.sqlite and mel/{}.sqlite for
// output.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InputPattern = filepath.Join(base, "audio", "{}.wav")
	cfgVal.Paths.LinearOutputPattern = filepath.Join(base, "lin", "{}.sqlite")
	cfgVal.Paths.MelOutputPattern = filepath.Join(base, "mel", "{}.sqlite")
	cfgVal.Logging.Format = "json"

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// BaseDir returns the directory NewConfig rooted the patterns in.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(filepath.Dir(cfg.Paths.InputPattern))
}

// WithKeepAllFeatures toggles voiced-frame trimming.
func WithKeepAllFeatures(keep bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Features.KeepAllFeatures = keep
	}
}

// WithPrecision sets the store precision.
func WithPrecision(precision string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.Precision = precision
	}
}

// WithTones writes a DefaultTone WAV for every id at the config's input
// pattern.
func WithTones(ids ...string) ConfigOption {
	return func(b *configBuilder) {
		for _, id := range ids {
			WriteWAV(b.t, b.cfg.Patterns().Input.Resolve(id), DefaultTone())
		}
	}
}

// WriteConfig encodes cfg to a TOML file in a temp directory and returns its path.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()

	text, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
